// models/message.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxLoggedTextLength caps both sides of a logged exchange, counted in runes
const MaxLoggedTextLength = 1000

// Message is one inbound text and the reply sent for it. Rows are append-only.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Phone     string    `gorm:"type:varchar(32);index;not null" json:"phone"`
	Incoming  string    `gorm:"type:text" json:"incoming"`
	Outgoing  string    `gorm:"type:text" json:"outgoing"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Incoming = Truncate(m.Incoming, MaxLoggedTextLength)
	m.Outgoing = Truncate(m.Outgoing, MaxLoggedTextLength)
	return
}

// Truncate shortens s to at most n runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
