package notification

import "context"

const (
	KindOtp               = "otp"
	KindOrderConfirmation = "order_confirmation"
)

// Message is the transport-agnostic shape handed to the notification sink.
type Message struct {
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Kind      string            `json:"kind"`
	Variables map[string]string `json:"variables"`
}

// Notifier is the fire-and-forget sink. Send failures are logged and counted,
// never surfaced to the operation that produced the event.
type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// LogEntry records one dispatch attempt for observability.
type LogEntry struct {
	To      string
	Subject string
	Kind    string
	Status  string // sent | failed
	Error   string
}

type Log interface {
	Record(ctx context.Context, e LogEntry) error
}
