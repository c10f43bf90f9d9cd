package service

import (
	"strings"

	"github.com/cloo-solutions/ragdoc/internal/domain"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// ChunkConfig controls segmentation of extracted text.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig returns the 500/50 character window.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    DefaultChunkSize,
		Overlap: DefaultChunkOverlap,
	}
}

// Validate requires size > overlap > 0 so the window always advances.
func (c ChunkConfig) Validate() error {
	if c.Overlap <= 0 || c.Size <= c.Overlap {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

// Segment slides a window of chunkSize characters over text, stepping by
// chunkSize-overlap. Windows are trimmed and empty ones dropped, so the
// returned positions are dense even when raw windows were skipped.
func Segment(text string, chunkSize, overlap int) ([]string, error) {
	cfg := ChunkConfig{Size: chunkSize, Overlap: overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	step := chunkSize - overlap
	chunks := make([]string, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	return chunks, nil
}
