package chat

import (
	"context"

	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
)

// Retriever finds contexts for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int, source string) (retrieval.Result, error)
}

// Model generates a completion for a message list.
type Model interface {
	Complete(ctx context.Context, messages []domchat.Message) (domchat.Completion, error)
}

// SessionReader looks up a session's default source.
type SessionReader interface {
	LastSource(ctx context.Context, id string) (string, error)
}
