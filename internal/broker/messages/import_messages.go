package messages

import (
	"time"

	"github.com/BearBump/ImportBox/internal/models"
)

const (
	EventCreated       = "created"
	EventUpdated       = "updated"
	EventStatusChanged = "status_changed"
	EventDeleted       = "deleted"
)

// RecordChanged is published after every successful mutation.
type RecordChanged struct {
	Event          string              `json:"event"`
	RecordID       uint64              `json:"record_id"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	Status         models.ImportStatus `json:"status,omitempty"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// StatusUpdateRequested is sent by partner systems (customs brokers, carriers)
// to move a record to another stage.
type StatusUpdateRequested struct {
	RecordID uint64              `json:"record_id"`
	Status   models.ImportStatus `json:"status"`
	Date     time.Time           `json:"date"`
	Notes    *string             `json:"notes,omitempty"`
}
