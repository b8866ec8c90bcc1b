package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is one party's 1..5 score of the other party on a completed job.
// The composite unique index allows exactly one rating per (job, from, to).
type Rating struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_direction" json:"job_id"`
	FromUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_direction" json:"from_user_id"`
	ToUserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"to_user_id"`

	Value   int    `gorm:"not null" json:"value"`
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Job      *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
	FromUser *User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUser   *User `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
}
