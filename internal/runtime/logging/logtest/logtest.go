// Package logtest provides a goroutine-safe recording ServiceLogger for tests.
package logtest

import (
	"sync"

	"github.com/drblury/bindflow/internal/runtime/logging"
)

// Entry is a single recorded log call.
type Entry struct {
	Level  string
	Msg    string
	Fields logging.LogFields
	Err    error
}

// Recorder records every log call, including calls made on loggers derived
// through With.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  logging.LogFields
}

func New() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) With(fields logging.LogFields) logging.ServiceLogger {
	merged := make(logging.LogFields, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Recorder{mu: r.mu, entries: r.entries, fields: merged}
}

func (r *Recorder) Debug(msg string, fields logging.LogFields) { r.record("debug", msg, nil, fields) }
func (r *Recorder) Info(msg string, fields logging.LogFields)  { r.record("info", msg, nil, fields) }
func (r *Recorder) Trace(msg string, fields logging.LogFields) { r.record("trace", msg, nil, fields) }

func (r *Recorder) Error(msg string, err error, fields logging.LogFields) {
	r.record("error", msg, err, fields)
}

// Entries returns a snapshot of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Errors returns the recorded error-level entries.
func (r *Recorder) Errors() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == "error" {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) record(level, msg string, err error, fields logging.LogFields) {
	merged := make(logging.LogFields, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{Level: level, Msg: msg, Fields: merged, Err: err})
}
