package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User carries the prepaid assessment balance. AssessSeconds is mutated only by
// code redemption, admin grants, and the post-success debit.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string    `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Name          string    `gorm:"type:varchar(100)" json:"name"`
	Role          string    `gorm:"type:varchar(20);default:user" json:"role"` // user | admin
	AssessSeconds int       `gorm:"default:0" json:"assess_seconds"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
