package chat

import (
	"fmt"
	"strings"

	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

// DefaultAnswerLanguage is used when no language is configured.
const DefaultAnswerLanguage = "English"

// UnknownSource labels fragments without a source name.
const UnknownSource = "unknown"

const systemPromptTemplate = "You are a helpful assistant. Always answer in %s.\n" +
	"Use only the information in the CONTEXT to answer.\n" +
	"If the context does not contain enough information, say so clearly."

// Assemble builds the model input: a system instruction, the valid history turns in
// order and a final user message with the question and numbered context blocks.
func Assemble(
	question string,
	contexts []string,
	metas []*document.Metadata,
	history []domchat.Turn,
	language string,
) []domchat.Message {
	if language == "" {
		language = DefaultAnswerLanguage
	}

	msgs := make([]domchat.Message, 0, len(history)+2)
	msgs = append(msgs, domchat.Message{
		Role:    domchat.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, language),
	})
	for _, t := range history {
		if t.Role.Valid() {
			msgs = append(msgs, t)
		}
	}
	msgs = append(msgs, domchat.Message{
		Role:    domchat.RoleUser,
		Content: userMessage(question, contexts, metas),
	})
	return msgs
}

func userMessage(question string, contexts []string, metas []*document.Metadata) string {
	block := "N/A"
	if len(contexts) > 0 {
		blocks := make([]string, len(contexts))
		for i, c := range contexts {
			var m *document.Metadata
			if i < len(metas) {
				m = metas[i]
			}
			blocks[i] = strings.TrimSpace(fmt.Sprintf("[%d] %s\n%s", i+1, label(m), c))
		}
		block = strings.Join(blocks, "\n\n")
	}

	return "Question: " + question + "\n\n" +
		"CONTEXT (numbered fragments):\n" + block + "\n\n" +
		"When citing, reference the fragments like this: [1], [2]."
}

// label renders "source (p. N)" or just the source when the page is unknown.
func label(m *document.Metadata) string {
	if m == nil {
		return UnknownSource
	}
	src := sourceName(m)
	if m.PageNumber > 0 {
		return fmt.Sprintf("%s (p. %d)", src, m.PageNumber)
	}
	return src
}

func sourceName(m *document.Metadata) string {
	if m == nil || m.SourceName == "" {
		return UnknownSource
	}
	return m.SourceName
}
