package ragchat

import "context"

// Embedder converts text to a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ChatModel generates a reply to a conversation.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
