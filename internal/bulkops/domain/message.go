package domain

import (
	"time"

	"github.com/google/uuid"
)

// DistributionQueueMessage is the self-contained fan-out work item published
// once per validated row. A worker can act on it without re-reading the
// uploaded file; it is immutable once published.
type DistributionQueueMessage struct {
	CorrelationID string    `json:"correlation_id"` // job id as text
	RowNumber     int       `json:"row_number"`
	JobID         uuid.UUID `json:"job_id"`
	SponsorID     uuid.UUID `json:"sponsor_id"`

	PurchaseID *uuid.UUID `json:"purchase_id,omitempty"`
	Tier       Tier       `json:"tier,omitempty"`
	Quantity   int        `json:"quantity"`

	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
	Notes string `json:"notes,omitempty"`

	SendSMS        bool   `json:"send_sms"`
	InvitationType string `json:"invitation_type,omitempty"`
	Channel        string `json:"channel,omitempty"`
	CustomMessage  string `json:"custom_message,omitempty"`

	QueuedAt time.Time `json:"queued_at"`
}
