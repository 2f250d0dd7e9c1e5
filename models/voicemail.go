package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Voicemail struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Phone         string    `gorm:"type:varchar(32);index;not null" json:"phone"`
	Transcription string    `gorm:"type:text" json:"transcription"`
	AIReply       string    `gorm:"type:text" json:"ai_reply"`
	RecordingURL  string    `json:"recording_url"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (v *Voicemail) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}
