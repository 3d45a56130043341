package notify

import "context"

// Message is one outbound notification. Recipients are plain email
// addresses; resolution from user IDs happens before enqueueing.
type Message struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// Notifier delivers messages best-effort. Failures are logged by the
// implementations and never fail the business operation.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
