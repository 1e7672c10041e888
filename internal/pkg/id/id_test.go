package id

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		v := New()
		_, dup := seen[v]
		require.False(t, dup, "duplicate id %s", v)
		seen[v] = struct{}{}
	}
}

func TestNew_Sortable(t *testing.T) {
	a, b := New(), New()
	pa, err := ulid.ParseStrict(a)
	require.NoError(t, err)
	pb, err := ulid.ParseStrict(b)
	require.NoError(t, err)
	assert.Equal(t, -1, pa.Compare(pb))
}
