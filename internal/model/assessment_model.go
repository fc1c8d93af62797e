package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assessment is a persisted pronunciation assessment. Rows exist for successful
// assessments only; IsBilled=true means the seconds debit already happened.
type Assessment struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	VideoID            string    `gorm:"type:varchar(64)" json:"video_id,omitempty"`
	RefText            string    `gorm:"type:text" json:"ref_text"`
	Language           string    `gorm:"type:varchar(20)" json:"language"`
	OverallScore       float64   `gorm:"type:float" json:"overall_score"`
	PronunciationScore float64   `gorm:"type:float" json:"pronunciation_score"`
	AccuracyScore      float64   `gorm:"type:float" json:"accuracy_score"`
	FluencyScore       float64   `gorm:"type:float" json:"fluency_score"`
	CompletenessScore  float64   `gorm:"type:float" json:"completeness_score"`
	Words              string    `gorm:"type:jsonb" json:"words"`
	Feedback           string    `gorm:"type:text" json:"feedback"`
	AudioDuration      float64   `gorm:"type:float" json:"audio_duration"`
	SecondsCharged     int       `json:"seconds_charged"`
	IsBilled           bool      `gorm:"default:false" json:"is_billed"`
	ProviderID         uuid.UUID `gorm:"type:uuid" json:"provider_id"`
	ProviderName       string    `gorm:"type:varchar(100)" json:"provider_name"`
	ProviderVendor     string    `gorm:"type:varchar(20)" json:"provider_vendor"`
	RawResponse        string    `gorm:"type:text" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}

func (a *Assessment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
