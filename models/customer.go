package models

import (
	"time"
)

type Customer struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Phone         string     `gorm:"uniqueIndex;not null" json:"phone"`
	Name          string     `json:"name"` // empty until the customer replies with a name
	WasIntroduced bool       `gorm:"default:false" json:"was_introduced"`
	IntroducedAt  *time.Time `json:"introduced_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasName reports whether a name has been captured
func (c *Customer) HasName() bool {
	return c != nil && c.Name != ""
}

// LastIntroduced returns when the intro was last sent, falling back to the
// row's creation time for rows written before introduced_at existed.
func (c *Customer) LastIntroduced() time.Time {
	if c.IntroducedAt != nil {
		return *c.IntroducedAt
	}
	return c.CreatedAt
}
