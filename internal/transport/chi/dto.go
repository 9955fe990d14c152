package chi

import (
	"strings"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	chatbotuc "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/chatbot"
)

// runRequest is the intake body. messageId, empId and comId are accepted as
// aliases of requestId, askerId and tenantId.
type runRequest struct {
	RequestID   string        `json:"requestId"`
	MessageID   string        `json:"messageId"`
	Question    string        `json:"question"`
	History     []historyItem `json:"history"`
	AskerID     string        `json:"askerId"`
	EmpID       string        `json:"empId"`
	TenantID    string        `json:"tenantId"`
	ComID       string        `json:"comId"`
	SessionID   string        `json:"sessionId"`
	CallbackURL string        `json:"callbackUrl"`
	CallbackKey string        `json:"callbackKey"`
}

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type runResponse struct {
	Accepted  bool   `json:"accepted"`
	RequestID string `json:"requestId"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (b runRequest) toRequest() chatbotuc.Request {
	history := make([]domain.Turn, 0, len(b.History))
	for _, h := range b.History {
		history = append(history, domain.Turn{Role: parseRole(h.Role), Content: h.Content})
	}
	return chatbotuc.Request{
		ID: firstNonEmpty(b.RequestID, b.MessageID),
		Question: domain.Question{
			Text:      strings.TrimSpace(b.Question),
			History:   history,
			AskerID:   firstNonEmpty(b.AskerID, b.EmpID),
			TenantID:  firstNonEmpty(b.TenantID, b.ComID),
			SessionID: b.SessionID,
		},
		CallbackURL: strings.TrimSpace(b.CallbackURL),
		CallbackKey: b.CallbackKey,
	}
}

// parseRole maps any role starting with "user" to the user; everything else
// is treated as the assistant.
func parseRole(s string) domain.Role {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "user") {
		return domain.RoleUser
	}
	return domain.RoleAssistant
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
