package entities

import (
	"time"

	"github.com/google/uuid"
)

// User is keyed by the caller's external identity and created lazily the first
// time a recipe, favorite or review references it.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name  string    `gorm:"size:200;not null" json:"name"`
	Email *string   `gorm:"size:320" json:"email,omitempty"`
	Timestamp
}

type Timestamp struct {
	CreatedAt time.Time `gorm:"type:timestamptz;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null" json:"updated_at"`
}
