package chat

import "encoding/json"

// DecodeHistory converts loosely typed history entries into turns. Entries that are not
// objects, carry an unknown role or non-string content are dropped.
func DecodeHistory(raw []json.RawMessage) []Turn {
	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var entry struct {
			Role    any `json:"role"`
			Content any `json:"content"`
		}
		if err := json.Unmarshal(r, &entry); err != nil {
			continue
		}
		role, ok := entry.Role.(string)
		if !ok || !Role(role).Valid() {
			continue
		}
		content, ok := entry.Content.(string)
		if !ok {
			continue
		}
		turns = append(turns, Turn{Role: Role(role), Content: content})
	}
	return turns
}
