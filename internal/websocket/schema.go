package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionViolation Action = "violation"
	ActionView      Action = "view"
	ActionSubmit    Action = "submit"
	ActionState     Action = "state"
	ActionPing      Action = "ping"
)

// Request is a client message. Fields beyond Action depend on the action:
// answer uses question_id and selected_index (null clears), violation uses
// kind, view uses question_id.
type Request struct {
	Action        Action `json:"action"`
	QuestionID    string `json:"question_id,omitempty"`
	SelectedIndex *int   `json:"selected_index,omitempty"`
	Kind          string `json:"kind,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState    Event = "state"
	EventSaved    Event = "saved"
	EventRecorded Event = "recorded"
	EventResult   Event = "result"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// Response wraps every successful server event.
type Response struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorResponse carries the same error codes as the HTTP envelope.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}
