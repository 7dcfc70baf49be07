package llm

import (
	"context"
	"time"
)

// Record is the normalized key/value/comment triple we want from the model.
type Record struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Comments string `json:"comments,omitempty"`

	// SourceChunk is the index of the chunk this record was extracted from.
	SourceChunk int `json:"-"`
}

// Request carries one chunk's prompts to the completer.
type Request struct {
	ChunkIndex int
	System     string
	User       string
}

// RawResponse is the untouched model output for one chunk. Opaque until parsed.
type RawResponse struct {
	ChunkIndex int
	Text       string
	ReceivedAt time.Time
}

// Completer is the remote-model boundary the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (RawResponse, error)
}
