package chat

// Role is the author of a conversation message.
type Role string

const (
	// RoleSystem is an instruction message.
	RoleSystem Role = "system"
	// RoleUser is a caller message.
	RoleUser Role = "user"
	// RoleAssistant is a model message.
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the accepted roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature = 0.2

// Message is a role-tagged message sent to a language model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn is a prior conversation message supplied by the caller. It is never persisted.
type Turn = Message

// Completion is the generated answer of a language model.
type Completion struct {
	Content string
	Model   string
}

// SourceChunk describes a retrieved fragment used to answer a question.
type SourceChunk struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Page     *int     `json:"page"`
	Distance *float64 `json:"distance"`
	Text     string   `json:"text"`
}
