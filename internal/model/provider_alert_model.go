package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderAlert records one failed provider attempt. Writing an alert never
// blocks the user-facing flow and has no billing impact.
type ProviderAlert struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderID     uuid.UUID `gorm:"type:uuid;index" json:"provider_id"`
	ProviderName   string    `gorm:"type:varchar(100)" json:"provider_name"`
	ProviderVendor string    `gorm:"type:varchar(20)" json:"provider_vendor"`
	Kind           string    `gorm:"type:varchar(30)" json:"kind"`
	Message        string    `gorm:"type:text" json:"message"`
	RawPayload     string    `gorm:"type:text" json:"raw_payload,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (a *ProviderAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
