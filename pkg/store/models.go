package store

import (
	"encoding/json"
	"time"

	"contactdesk/pkg/domain"
	"gorm.io/datatypes"
)

// ContactMessageModel is the GORM row for contact_messages.
type ContactMessageModel struct {
	ID          string         `gorm:"primaryKey"`
	Name        string         `gorm:"not null"`
	Email       string         `gorm:"not null;index"`
	Message     string         `gorm:"type:text;not null"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	SubmittedAt time.Time      `gorm:"not null;index"`
	CreatedAt   time.Time      `gorm:"not null"`
}

func (ContactMessageModel) TableName() string {
	return "contact_messages"
}

func contactToModel(msg domain.ContactMessage) ContactMessageModel {
	model := ContactMessageModel{
		ID:          msg.ID,
		Name:        msg.Name,
		Email:       msg.Email,
		Message:     msg.Message,
		SubmittedAt: msg.SubmittedAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if len(msg.Metadata) > 0 {
		if raw, err := json.Marshal(msg.Metadata); err == nil {
			model.Metadata = datatypes.JSON(raw)
		}
	}
	return model
}

func modelToContact(m ContactMessageModel) domain.ContactMessage {
	msg := domain.ContactMessage{
		ID:          m.ID,
		Name:        m.Name,
		Email:       m.Email,
		Message:     m.Message,
		SubmittedAt: m.SubmittedAt.UTC(),
	}
	if len(m.Metadata) > 0 {
		var meta map[string]string
		if err := json.Unmarshal(m.Metadata, &meta); err == nil && len(meta) > 0 {
			msg.Metadata = meta
		}
	}
	return msg
}
