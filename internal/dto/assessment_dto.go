package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/service"
)

type AssessmentRequest struct {
	Text        string `json:"text" validate:"required"`
	AudioBase64 string `json:"audioBase64" validate:"required"`
	Language    string `json:"language"`
	VideoID     string `json:"videoId"`
	ProviderID  string `json:"providerId"`
}

type AssessmentResponse struct {
	AssessmentID       uuid.UUID           `json:"assessmentId"`
	OverallScore       float64             `json:"overall_score"`
	PronunciationScore float64             `json:"pronunciation_score"`
	AccuracyScore      float64             `json:"accuracy_score"`
	FluencyScore       float64             `json:"fluency_score"`
	CompletenessScore  float64             `json:"completeness_score"`
	WordsResult        []service.WordScore `json:"words_result"`
	Feedback           string              `json:"feedback"`
	SecondsUsed        int                 `json:"seconds_used"`
	RemainingSeconds   int                 `json:"remaining_seconds"`
	Billed             bool                `json:"billed"`
	Provider           string              `json:"provider"`
}

type AssessmentSummary struct {
	ID           uuid.UUID `json:"id"`
	VideoID      string    `json:"videoId,omitempty"`
	RefText      string    `json:"ref_text"`
	OverallScore float64   `json:"overall_score"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

type BalanceResponse struct {
	RemainingSeconds int     `json:"remaining_seconds"`
	RemainingMinutes float64 `json:"remaining_minutes"`
}

type RedeemRequest struct {
	Code string `json:"code" validate:"required"`
}

type RedeemResponse struct {
	GrantedSeconds   int `json:"granted_seconds"`
	RemainingSeconds int `json:"remaining_seconds"`
}
