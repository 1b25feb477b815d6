// Package notify delivers invoice workflow events to AP staff.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// Kind identifies the workflow event.
type Kind string

const (
	KindExceptionRaised Kind = "invoice.exception_raised"
	KindInvoicePaid     Kind = "invoice.paid"
	KindManualMatch     Kind = "invoice.manual_match"
)

// Notification is one event about an invoice.
type Notification struct {
	Kind           Kind                    `json:"kind"`
	OrganizationID string                  `json:"organization_id"`
	ProjectID      string                  `json:"project_id,omitempty"`
	InvoiceID      string                  `json:"invoice_id"`
	InvoiceNumber  string                  `json:"invoice_number,omitempty"`
	Recipient      string                  `json:"recipient,omitempty"` // uploader of the invoice
	MatchStatus    procurement.MatchStatus `json:"match_status,omitempty"`
	Exceptions     []procurement.Exception `json:"exceptions,omitempty"`
	Message        string                  `json:"message"`
	At             time.Time               `json:"at"`
}

// Notifier sends notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	level := slog.LevelInfo
	if n.Kind == KindExceptionRaised {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, n.Message,
		"kind", n.Kind,
		"invoice_id", n.InvoiceID,
		"recipient", n.Recipient,
		"organization_id", n.OrganizationID,
		"match_status", n.MatchStatus,
		"exceptions", len(n.Exceptions),
	)
	return nil
}

// Multi fans a notification out to every notifier. All notifiers are
// attempted; their errors are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Notification) error { return nil }
