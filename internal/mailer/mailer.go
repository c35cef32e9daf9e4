// Package mailer is the outbound email collaborator boundary. Delivery is
// best-effort from the core's perspective: callers log failures and never
// roll back on them.
package mailer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ValidationRequest is the template data for the notification sent to the
// chosen company: who is asking, where they live, and the decision link.
type ValidationRequest struct {
	FirstName   string
	LastName    string
	Commune     string
	Address     string
	DecisionURL string
}

// Mailer delivers a validation request to the company's addresses and
// returns the provider's message identifier.
type Mailer interface {
	SendValidationRequest(ctx context.Context, to []string, data ValidationRequest) (string, error)
}

// LogMailer is the dev/default implementation: it logs the delivery and
// fabricates a message id. Real providers plug in behind the same interface.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendValidationRequest(ctx context.Context, to []string, data ValidationRequest) (string, error) {
	messageID := uuid.NewString()
	m.logger.InfoContext(ctx, "validation request email",
		"to", to,
		"commune", data.Commune,
		"message_id", messageID,
	)
	return messageID, nil
}

// Recorder captures deliveries for tests, optionally failing them.
type Recorder struct {
	mu sync.Mutex

	// Err, when set, is returned by every send.
	Err error

	Sent []RecordedDelivery
}

type RecordedDelivery struct {
	To   []string
	Data ValidationRequest
}

func (r *Recorder) SendValidationRequest(_ context.Context, to []string, data ValidationRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	r.Sent = append(r.Sent, RecordedDelivery{To: to, Data: data})
	return uuid.NewString(), nil
}
