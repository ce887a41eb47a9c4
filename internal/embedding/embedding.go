// Package embedding turns record text into vectors via a local Ollama server.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensions is returned when a model answers with a vector of the wrong size.
var ErrDimensions = errors.New("unexpected embedding dimensions")

// Embedding is the vector for one piece of text.
type Embedding struct {
	Vector []float32
}

// Dimensions returns the length of the vector.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Check returns ErrDimensions unless the vector has exactly want entries.
func (e Embedding) Check(want int) error {
	if len(e.Vector) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensions, len(e.Vector), want)
	}
	return nil
}

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// BatchProvider is a Provider that can embed several texts per request.
type BatchProvider interface {
	Provider

	// EmbedBatch returns one embedding per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}
