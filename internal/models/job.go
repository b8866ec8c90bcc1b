package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Job is a service request posted by a customer. ContractorID is set the
// moment a bid is accepted and the job moves to in_progress; a cancelled job
// keeps whatever contractor it had at cancellation time.
type Job struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null" json:"customer_id"`

	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"index" json:"category"`
	Location    string         `json:"location"`
	Budget      float64        `gorm:"type:numeric(12,2)" json:"budget"`
	Images      datatypes.JSON `json:"images,omitempty"`

	Status       JobStatus  `gorm:"type:varchar(20);default:open;index" json:"status"`
	ContractorID *uuid.UUID `gorm:"type:uuid;index" json:"contractor_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Customer   *User `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Contractor *User `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	Bids       []Bid `gorm:"foreignKey:JobID" json:"bids,omitempty"`
}
