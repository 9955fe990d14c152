package domain

import "strings"

// Role identifies the author of a conversation turn or prompt message.
type Role string

const (
	// RoleSystem is the instruction message of a prompt.
	RoleSystem Role = "system"
	// RoleUser is the end user.
	RoleUser Role = "user"
	// RoleAssistant is the chatbot.
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    Role
	Content string
}

// Question is a single end-user request together with its scoping identity.
type Question struct {
	Text      string
	History   []Turn
	AskerID   string
	TenantID  string
	SessionID string
}

// HistoryText renders prior turns as "User: ..." / "Assistant: ..." lines.
// Turns with empty content are skipped.
func HistoryText(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		speaker := "User"
		if t.Role == RoleAssistant {
			speaker = "Assistant"
		}
		lines = append(lines, speaker+": "+content)
	}
	return strings.Join(lines, "\n")
}
