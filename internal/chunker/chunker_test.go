package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// words builds "w0 w1 ... w(n-1)"
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestNew(t *testing.T) {
	c := New()
	assert.NotNil(t, c)
	assert.Equal(t, DefaultWindowWords, c.window)
	assert.Equal(t, DefaultOverlapWords, c.overlap)
}

func TestNewWithWindow(t *testing.T) {
	tests := []struct {
		name    string
		window  int
		overlap int
		wantErr bool
	}{
		{"valid", 10, 2, false},
		{"no overlap", 10, 0, false},
		{"zero window", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals window", 10, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewWithWindow(tt.window, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestWindows(t *testing.T) {
	c, err := NewWithWindow(5, 2)
	require.NoError(t, err)

	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, c.Windows(""))
		assert.Empty(t, c.Windows(" \n\t "))
	})

	t.Run("shorter than window", func(t *testing.T) {
		assert.Equal(t, []string{"w0 w1 w2"}, c.Windows(words(3)))
	})

	t.Run("exact window", func(t *testing.T) {
		assert.Equal(t, []string{"w0 w1 w2 w3 w4"}, c.Windows(words(5)))
	})

	t.Run("overlapping windows", func(t *testing.T) {
		got := c.Windows(words(11))
		assert.Equal(t, []string{
			"w0 w1 w2 w3 w4",
			"w3 w4 w5 w6 w7",
			"w6 w7 w8 w9 w10",
		}, got)
	})

	t.Run("short tail", func(t *testing.T) {
		got := c.Windows(words(9))
		require.Len(t, got, 3)
		assert.Equal(t, "w6 w7 w8", got[2])
	})

	t.Run("normalizes whitespace", func(t *testing.T) {
		assert.Equal(t, []string{"a b c"}, c.Windows("  a\n\nb\t c  "))
	})
}

func TestWindows_Defaults(t *testing.T) {
	got := New().Windows(words(500))

	// Steps of 160 words: 0, 160, 320 (ends at 500)
	require.Len(t, got, 3)
	assert.Len(t, strings.Fields(got[0]), DefaultWindowWords)
	assert.True(t, strings.HasPrefix(got[1], "w160 "))
	assert.Len(t, strings.Fields(got[2]), 180)
}

func TestChunkText(t *testing.T) {
	c, err := NewWithWindow(4, 1)
	require.NoError(t, err)

	sectionID := int64(7)
	chunks := c.ChunkText(3, &sectionID, words(7), 10)
	require.Len(t, chunks, 2)

	for i, chunk := range chunks {
		assert.Equal(t, int64(3), chunk.ProjectID)
		require.NotNil(t, chunk.SectionID)
		assert.Equal(t, int64(7), *chunk.SectionID)
		assert.Equal(t, 10+i, chunk.Index)
		assert.Equal(t, ComputeChunkHash(chunk.Content), chunk.ContentHash)
		assert.Equal(t, EstimateTokenCount(chunk.Content), chunk.TokenCount)
		assert.NoError(t, chunk.Validate())
	}
	assert.Equal(t, "w3 w4 w5 w6", chunks[1].Content)

	abstract := c.ChunkText(3, nil, "a short abstract", 0)
	require.Len(t, abstract, 1)
	assert.Nil(t, abstract[0].SectionID)

	assert.Empty(t, c.ChunkText(3, nil, "", 0))
}

func TestComputeChunkHash(t *testing.T) {
	assert.Equal(t, ComputeChunkHash("same"), ComputeChunkHash("same"))
	assert.NotEqual(t, ComputeChunkHash("a"), ComputeChunkHash("b"))
}

func TestEstimateTokenCount(t *testing.T) {
	assert.Equal(t, 0, EstimateTokenCount(""))
	assert.Equal(t, 2, EstimateTokenCount("12345678"))
}
