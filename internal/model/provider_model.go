package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VendorAzure   = "azure"
	VendorTencent = "tencent"
	VendorIfly    = "ifly"
)

// AssessmentProvider is an administrator-managed speech scoring vendor entry.
// Credential columns hold names of environment variables, never the secret itself;
// Config may carry inline overrides that take precedence over the environment.
type AssessmentProvider struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100)" json:"name"`
	Vendor       string    `gorm:"type:varchar(20);index" json:"vendor"` // azure | tencent | ifly
	Endpoint     string    `gorm:"type:varchar(255)" json:"endpoint"`
	Region       string    `gorm:"type:varchar(50)" json:"region"`
	AppIDEnv     string    `gorm:"type:varchar(100)" json:"app_id_env"`
	APIKeyEnv    string    `gorm:"type:varchar(100)" json:"api_key_env"`
	APISecretEnv string    `gorm:"type:varchar(100)" json:"api_secret_env"`
	Config       string    `gorm:"type:jsonb" json:"config"`
	Active       bool      `gorm:"default:true" json:"active"`
	IsDefault    bool      `gorm:"default:false" json:"default"`
	Priority     int       `gorm:"default:0" json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *AssessmentProvider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
