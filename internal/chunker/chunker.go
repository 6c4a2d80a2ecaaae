package chunker

import (
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/dshills/capstone-search/pkg/types"
)

const (
	// DefaultWindowWords is the number of whitespace-separated words per chunk
	DefaultWindowWords = 200

	// DefaultOverlapWords is how many words consecutive windows share
	DefaultOverlapWords = 40
)

// ErrInvalidWindow is returned for a non-positive window or an overlap that
// does not leave the window room to advance
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunker splits document text into overlapping word windows
type Chunker struct {
	window  int
	overlap int
}

// New creates a Chunker with the default 200 word window and 40 word overlap
func New() *Chunker {
	return &Chunker{
		window:  DefaultWindowWords,
		overlap: DefaultOverlapWords,
	}
}

// NewWithWindow creates a Chunker with a custom window and overlap
func NewWithWindow(window, overlap int) (*Chunker, error) {
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil, ErrInvalidWindow
	}
	return &Chunker{window: window, overlap: overlap}, nil
}

// Windows returns the text split into overlapping word windows. Whitespace
// inside a window is normalized to single spaces.
func (c *Chunker) Windows(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.window - c.overlap
	windows := make([]string, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := min(start+c.window, len(words))
		windows = append(windows, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return windows
}

// ChunkText builds chunks for one block of project text. sectionID is nil for
// the abstract. Indexes continue from startIndex so a project's chunks are
// numbered across all of its sections.
func (c *Chunker) ChunkText(projectID int64, sectionID *int64, text string, startIndex int) []*types.Chunk {
	windows := c.Windows(text)
	chunks := make([]*types.Chunk, 0, len(windows))
	for i, content := range windows {
		chunk := &types.Chunk{
			ProjectID: projectID,
			SectionID: sectionID,
			Content:   content,
			Index:     startIndex + i,
		}
		chunk.ComputeTokenCount()
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}
	return chunks
}

// ComputeChunkHash computes the SHA-256 hash for a chunk's content
func ComputeChunkHash(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / types.TokensPerChar
}
