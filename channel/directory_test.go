package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryLookup(t *testing.T) {
	orders := New("orders")
	audit := New("audit")
	dir, err := NewDirectory(orders, audit)
	require.NoError(t, err)

	got, ok := dir.Lookup("orders")
	require.True(t, ok)
	assert.Same(t, orders, got)

	_, ok = dir.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"audit", "orders"}, dir.Names())
}

func TestDirectoryRejectsDuplicatesAndNil(t *testing.T) {
	_, err := NewDirectory(New("orders"), New("orders"))
	assert.ErrorContains(t, err, `"orders" already registered`)

	var dir Directory
	assert.Error(t, dir.Register(nil))
	require.NoError(t, dir.Register(New("lazy")))
	_, ok := dir.Lookup("lazy")
	assert.True(t, ok)
}

func TestLookupFunc(t *testing.T) {
	orders := New("orders")
	var lookup Lookup = LookupFunc(func(name string) (Channel, bool) {
		if name == "orders" {
			return orders, true
		}
		return nil, false
	})

	got, ok := lookup.Lookup("orders")
	assert.True(t, ok)
	assert.Same(t, orders, got)
}
