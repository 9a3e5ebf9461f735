package binder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetSingleBinder(t *testing.T) {
	r := NewRegistry()
	only := &stubBinder{name: "only"}
	require.NoError(t, r.Register("only", only))

	got, err := r.Get("")
	require.NoError(t, err)
	assert.Same(t, only, got)

	got, err = r.Get("only")
	require.NoError(t, err)
	assert.Same(t, only, got)
}

func TestRegistryGetAmbiguousWithoutDefault(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("kafka", &stubBinder{}))
	require.NoError(t, r.Register("rabbit", &stubBinder{}))

	_, err := r.Get("")
	var amb *AmbiguousBinderError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, []string{"kafka", "rabbit"}, amb.Candidates)
}

func TestRegistryGetDefault(t *testing.T) {
	r := NewRegistry()
	rabbit := &stubBinder{}
	require.NoError(t, r.Register("kafka", &stubBinder{}))
	require.NoError(t, r.Register("rabbit", rabbit))
	require.NoError(t, r.SetDefault("rabbit"))
	assert.Equal(t, "rabbit", r.Default())

	got, err := r.Get("")
	require.NoError(t, err)
	assert.Same(t, rabbit, got)

	require.NoError(t, r.SetDefault(""))
	_, err = r.Get("")
	var amb *AmbiguousBinderError
	assert.ErrorAs(t, err, &amb)
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("")
	var unknown *UnknownBinderError
	require.ErrorAs(t, err, &unknown)

	require.NoError(t, r.Register("local", &stubBinder{}))
	_, err = r.Get("nats")
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nats", unknown.Name)
	assert.Equal(t, []string{"local"}, unknown.Registered)

	assert.ErrorAs(t, r.SetDefault("nats"), &unknown)
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", &stubBinder{}))
	assert.Error(t, r.Register("nil", nil))
	assert.ErrorContains(t, r.Register("a#b", &stubBinder{}), "must not contain '#'")

	require.NoError(t, r.Register("local", &stubBinder{}))
	assert.ErrorContains(t, r.Register("local", &stubBinder{}), "already registered")
	assert.Equal(t, []string{"local"}, r.Names())
}

func TestRegistryCloseJoinsErrors(t *testing.T) {
	r := NewRegistry()
	ok := &stubBinder{}
	failing := &stubBinder{closeErr: errors.New("boom")}
	require.NoError(t, r.Register("ok", ok))
	require.NoError(t, r.Register("failing", failing))

	err := r.Close()
	assert.ErrorContains(t, err, "close binder failing: boom")
	assert.Equal(t, 1, ok.closed)
	assert.Equal(t, 1, failing.closed)
}
