package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "team_33_39", Key("team", 33, 39))
	assert.Equal(t, "team_form_33_39", Key("team_form", 33, 39))
	assert.Equal(t, "league_39", Key("league", 39))
	assert.Equal(t, "league", Key("league"))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok, err := c.Get(ctx, "team_1_2")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`{"a":1}`)
	require.NoError(t, c.Set(ctx, "team_1_2", value))
	value[0] = 'x'

	got, ok, err := c.Get(ctx, "team_1_2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got), "stored value is a copy")
	assert.Equal(t, 1, c.Len())
	assert.NoError(t, c.Close())
}
