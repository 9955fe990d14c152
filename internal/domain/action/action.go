// Package action lists the navigation shortcuts the chatbot may suggest.
package action

import "maps"

// Action IDs understood by the groupware front end.
const (
	MailCompose    = "NAV_MAIL_COMPOSE"
	MyReservations = "NAV_MY_RESERVATIONS"
	TodaySchedule  = "NAV_TODAY_SCHEDULE"
	ApprovalDraft  = "NAV_APPROVAL_DRAFT"
)

// Action is a registry entry.
type Action struct {
	ID             string
	Label          string
	RequiredParams []string
}

// Suggestion is the action attached to a successful answer.
type Suggestion struct {
	ActionID string
	Params   map[string]any
}

var registry = []Action{
	{ID: MailCompose, Label: "메일 작성"},
	{ID: MyReservations, Label: "내 예약 조회"},
	{ID: TodaySchedule, Label: "오늘 일정"},
	{ID: ApprovalDraft, Label: "결재 작성"},
}

// Registry returns a copy of all actions in display order.
func Registry() []Action {
	out := make([]Action, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds an action by ID.
func Lookup(id string) (Action, bool) {
	for _, a := range registry {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// NewSuggestion validates id against the registry. Nil params become an empty map.
func NewSuggestion(id string, params map[string]any) (*Suggestion, bool) {
	if _, ok := Lookup(id); !ok {
		return nil, false
	}
	p := make(map[string]any, len(params))
	maps.Copy(p, params)
	return &Suggestion{ActionID: id, Params: p}, true
}
