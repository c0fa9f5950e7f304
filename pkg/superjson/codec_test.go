package superjson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := map[string]any{
		"name":    "Ada",
		"when":    now,
		"tags":    []any{"a", "b"},
		"nested":  map[string]any{"createdAt": now},
	}

	env, err := Serialize(in)
	require.NoError(t, err)
	assert.Equal(t, dateTag, env.Meta["when"])
	assert.Equal(t, dateTag, env.Meta["nested.createdAt"])

	out, err := Deserialize(env)
	require.NoError(t, err)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", m["name"])

	revived, ok := m["when"].(time.Time)
	require.True(t, ok)
	assert.True(t, now.Equal(revived))

	nested, ok := m["nested"].(map[string]any)
	require.True(t, ok)
	revivedNested, ok := nested["createdAt"].(time.Time)
	require.True(t, ok)
	assert.True(t, now.Equal(revivedNested))
}

func TestDeserializeEmpty(t *testing.T) {
	out, err := Deserialize(Envelope{})
	require.NoError(t, err)
	assert.Nil(t, out)
}
