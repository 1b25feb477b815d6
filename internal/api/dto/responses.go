package dto

import (
	"time"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response with the current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ToleranceResponse is an organization's effective match thresholds.
type ToleranceResponse struct {
	OrganizationID string            `json:"organization_id"`
	Tolerance      matcher.Tolerance `json:"tolerance"`
}

// InvoiceHistoryResponse lists an invoice's audit events, oldest first.
type InvoiceHistoryResponse struct {
	InvoiceID string                 `json:"invoice_id"`
	Events    []storage.InvoiceEvent `json:"events"`
}
