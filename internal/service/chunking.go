package service

import (
	"unicode"

	"github.com/bidcraft/bidcraft/internal/domain"
)

// ChunkConfig controls how record text is split for embedding.
type ChunkConfig struct {
	Size    int // maximum runes per chunk
	Overlap int // runes shared by consecutive chunks
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// boundaryTolerance is how far back from the window end a natural break
// is preferred over a hard cut.
const boundaryTolerance = 200

// ChunkText splits text into overlapping chunks of at most cfg.Size
// runes. Each window prefers to end on a paragraph, sentence, or word
// boundary within the tolerance band; the next window starts exactly
// cfg.Overlap runes before the previous cut, so consecutive chunks share
// exactly that many runes and the original text is reconstructible by
// dropping each chunk's leading overlap. Output is deterministic.
func ChunkText(text string, cfg ChunkConfig) ([]domain.Chunk, error) {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, domain.ErrInvalidChunkConfig
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= cfg.Size {
		return []domain.Chunk{{Text: text, Offset: 0}}, nil
	}

	chunks := make([]domain.Chunk, 0, len(runes)/(cfg.Size-cfg.Overlap)+1)
	start := 0
	for {
		end := start + cfg.Size
		if end >= len(runes) {
			chunks = append(chunks, domain.Chunk{Text: string(runes[start:]), Offset: start})
			break
		}

		cut := boundaryCut(runes, start+cfg.Overlap, end)
		chunks = append(chunks, domain.Chunk{Text: string(runes[start:cut]), Offset: start})
		start = cut - cfg.Overlap
	}

	return chunks, nil
}

// boundaryCut picks the cut position for a window ending at end, scanning
// backwards at most boundaryTolerance runes but never at or before
// floor (the previous cut must advance past the overlap region).
// Preference order: paragraph break, sentence end, whitespace, hard cut.
func boundaryCut(runes []rune, floor, end int) int {
	lo := end - boundaryTolerance
	if lo <= floor {
		lo = floor + 1
	}

	for i := end; i >= lo; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if isSentenceEnd(runes[i-1]) && i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
