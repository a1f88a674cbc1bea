package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasChanged(t *testing.T) {
	t.Run("should report changed content", func(t *testing.T) {
		assert.True(t, HasChanged(Parts("v1"), Parts("v2")))
	})

	t.Run("should treat an unset previous fingerprint as changed", func(t *testing.T) {
		assert.True(t, HasChanged("", Parts("v1")))
	})

	t.Run("should not report identical content", func(t *testing.T) {
		assert.False(t, HasChanged(Parts("v1"), Parts("v1")))
	})
}

func TestGenerateFrom(t *testing.T) {
	type record struct {
		ID   string            `json:"id"`
		Tags map[string]string `json:"tags"`
	}

	a, err := GenerateFrom(record{ID: "r1", Tags: map[string]string{"x": "1", "y": "2"}})
	require.NoError(t, err)
	b, err := GenerateFrom(map[string]any{"tags": map[string]any{"y": "2", "x": "1"}, "id": "r1"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestParts(t *testing.T) {
	assert.Equal(t, Parts("a", "b"), Parts("a", "b"))
	assert.NotEqual(t, Parts("ab", "c"), Parts("a", "bc"))
}
