package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tradie is the tradesperson the assistant answers for. Rows are written once
// at registration.
type Tradie struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Business  string    `gorm:"not null" json:"business"`
	Email     string    `gorm:"not null" json:"email"`
	Phone     string    `gorm:"uniqueIndex;not null" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Initialize UUID before creating
func (t *Tradie) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
