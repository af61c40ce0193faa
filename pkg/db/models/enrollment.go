package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a user to a series they own. The composite primary key
// makes grants naturally idempotent.
type Enrollment struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	SeriesID  uuid.UUID `gorm:"column:series_id;type:uuid;primaryKey"`
	GrantedAt time.Time `gorm:"column:granted_at;autoCreateTime"`
}
