package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks workitems-ai/internal/llm Embedder,Generator

import "context"

// Embedder turns texts into fixed-dimension embedding vectors.
// Implemented by EmbeddingsClient.
type Embedder interface {
	// EmbedTexts embeds each input text, returning one vector per input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Generator produces chat completions. Implemented by Client.
type Generator interface {
	// StreamChat streams the answer, invoking callback per content chunk.
	StreamChat(ctx context.Context, messages []Message, params ChatParams, callback func(chunk string) error) error
}
