package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// InvoiceEvent is one entry in an invoice's audit trail: a status change,
// a re-match or a manual override.
type InvoiceEvent struct {
	ID         int64                     `json:"id"`
	InvoiceID  string                    `json:"invoice_id"`
	FromStatus procurement.InvoiceStatus `json:"from_status,omitempty"`
	ToStatus   procurement.InvoiceStatus `json:"to_status"`
	Actor      string                    `json:"actor,omitempty"`
	Note       string                    `json:"note,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fromJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
