package models

import (
	"time"

	"github.com/google/uuid"
)

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

// Bid is a contractor's priced proposal against one job. The composite
// unique index enforces at most one bid per (job, contractor) pair.
type Bid struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_job_contractor" json:"job_id"`
	ContractorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_job_contractor" json:"contractor_id"`

	Amount        float64 `gorm:"type:numeric(12,2);not null" json:"amount"`
	Proposal      string  `gorm:"type:text" json:"proposal"`
	EstimatedDays *int    `json:"estimated_days,omitempty"`

	Status BidStatus `gorm:"type:varchar(20);default:pending;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Job        *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Contractor *User `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
}
