package service

// Events pushed to clients watching a session
const (
	EventTick             = "tick"
	EventQuizCompleted    = "quiz_completed"
	EventPaymentConfirmed = "payment_confirmed"
	EventSessionReset     = "session_reset"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToSession(string, string, interface{}) {}
func (nopBroadcaster) DisconnectSession(string)                       {}

// TickPayload accompanies EventTick
type TickPayload struct {
	SessionID        string `json:"sessionId"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// CompletedPayload accompanies EventQuizCompleted
type CompletedPayload struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
	Answered  int    `json:"answered"`
	TimedOut  bool   `json:"timedOut"`
}

// PaymentPayload accompanies EventPaymentConfirmed
type PaymentPayload struct {
	SessionID  string `json:"sessionId"`
	TxHash     string `json:"txHash"`
	FinalScore int    `json:"finalScore"`
}
