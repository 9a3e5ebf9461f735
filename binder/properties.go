package binder

// Well-known property keys. Binders ignore keys they do not understand.
const (
	PropertyGroup        = "group"
	PropertyPartitionKey = "partition_key"
	PropertyConcurrency  = "concurrency"
	PropertyTopic        = "topic"
)

// Properties carries per-destination binder settings.
type Properties map[string]string

// Get returns the value for key, or def when it is unset or empty.
func (p Properties) Get(key, def string) string {
	if v := p[key]; v != "" {
		return v
	}
	return def
}

func (p Properties) cloneWithExtra(extra int) Properties {
	size := len(p) + extra
	if size <= 0 {
		return Properties{}
	}

	cloned := make(Properties, size)
	for k, v := range p {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy. Cloning nil yields nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return p.cloneWithExtra(0)
}

// With returns a copy containing key=value.
func (p Properties) With(key, value string) Properties {
	cloned := p.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a copy overlaid with entries.
func (p Properties) WithAll(entries Properties) Properties {
	cloned := p.cloneWithExtra(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}
