package domain

// Chunk is a bounded-length slice of a record's text, the unit of
// embedding and retrieval. Offset is the rune offset of Text within the
// source text. SourceID names the session the chunk belongs to.
type Chunk struct {
	Text     string
	Offset   int
	SourceID string
}

// EmbeddedChunk pairs a chunk with its embedding vector for indexing.
type EmbeddedChunk struct {
	Chunk     Chunk
	Embedding []float32
}
