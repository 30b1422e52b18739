package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryStableTieBreak(t *testing.T) {
	a := &stubAdapter{key: "a", index: 10}
	b := &stubAdapter{key: "b", index: 10}
	c := &stubAdapter{key: "c", index: 5}

	r := NewRegistry("test", a, b, c)

	sorted := r.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "c", sorted[0].Key())
	// Equal order indexes keep registration order.
	assert.Equal(t, "a", sorted[1].Key())
	assert.Equal(t, "b", sorted[2].Key())
}

func TestRegistryGet(t *testing.T) {
	a := &stubAdapter{key: "a", index: 10}
	r := NewRegistry("test", a)

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got.(*stubAdapter))

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrAdapterNotFound)
}

func TestRegistryRejectsDuplicateKeys(t *testing.T) {
	r := NewRegistry("test", &stubAdapter{key: "a", index: 10})
	assert.Panics(t, func() {
		r.Register(&stubAdapter{key: "a", index: 20})
	})
}
