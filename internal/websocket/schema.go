package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is any client message. Autosave carries either a single
// q_id/ans pair or an answers map; submit may carry final answers, which
// take precedence over the saved draft.
type RequestPayload struct {
	Action  Action            `json:"action"`
	QID     string            `json:"q_id,omitempty"`
	Answer  string            `json:"ans,omitempty"`
	Answers map[string]string `json:"answers,omitempty"`
}

// DraftAnswers folds the single-answer form into the answers map.
func (p *RequestPayload) DraftAnswers() map[string]string {
	out := make(map[string]string, len(p.Answers)+1)
	for k, v := range p.Answers {
		out[k] = v
	}
	if p.QID != "" {
		out[p.QID] = p.Answer
	}
	return out
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

type SavedResponse struct {
	Event Event `json:"event"`
	Count int   `json:"count"`
}

type GradedResponse struct {
	Event        Event   `json:"event"`
	AttemptID    int64   `json:"attempt_id"`
	TotalScore   float64 `json:"total_score"`
	Percentage   float64 `json:"percentage"`
	CorrectCount int     `json:"correct_count"`
	ResultURL    string  `json:"result_url"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
