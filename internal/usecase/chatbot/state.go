package chatbot

// State is a stage of one request's lifecycle.
type State string

// Request states in order. Failed is reachable from any of them.
const (
	StateReceived            State = "received"
	StatePlanning            State = "planning"
	StateRetrieving          State = "retrieving"
	StateDeliverInsufficient State = "deliver_insufficient"
	StateSynthesizing        State = "synthesizing"
	StateStreaming           State = "streaming"
	StateSuggestingAction    State = "suggesting_action"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
)
