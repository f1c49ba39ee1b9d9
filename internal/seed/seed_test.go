package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedSeeds(t *testing.T) {
	t.Parallel()

	data, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, data.Sources)
	assert.NotEmpty(t, data.Venues)
	assert.NotEmpty(t, data.AmbiguousNames)

	keys := make(map[string]bool)
	for _, s := range data.Sources {
		require.NotEmpty(t, s.Key)
		require.NotEmpty(t, s.URL)
		assert.False(t, keys[s.Key], "duplicate source key %q", s.Key)
		keys[s.Key] = true
	}

	names := make(map[string]bool)
	var hasPlaceholder bool
	for _, v := range data.Venues {
		require.NotEmpty(t, v.Name)
		assert.False(t, names[v.Name], "duplicate venue %q", v.Name)
		names[v.Name] = true
		if v.Name == "Tbc" {
			hasPlaceholder = true
		}
		// Coordinates come in pairs or not at all.
		assert.Equal(t, v.Lat == nil, v.Lng == nil, "venue %q has half a coordinate", v.Name)
	}
	assert.True(t, hasPlaceholder, "placeholder venue must be seeded")
}
