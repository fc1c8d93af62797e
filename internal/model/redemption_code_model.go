package model

import (
	"time"

	"github.com/google/uuid"
)

// RedemptionCode grants a fixed number of assessment seconds, once.
type RedemptionCode struct {
	Code       string     `gorm:"type:varchar(32);primaryKey" json:"code"`
	Seconds    int        `json:"seconds"`
	RedeemedBy *uuid.UUID `gorm:"type:uuid" json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
