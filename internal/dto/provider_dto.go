package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProviderRequest struct {
	Name         string `json:"name" validate:"required"`
	Vendor       string `json:"vendor" validate:"required,oneof=azure tencent ifly"`
	Endpoint     string `json:"endpoint"`
	Region       string `json:"region"`
	AppIDEnv     string `json:"app_id_env"`
	APIKeyEnv    string `json:"api_key_env"`
	APISecretEnv string `json:"api_secret_env"`
	Config       string `json:"config"`
	Active       *bool  `json:"active"`
	Priority     int    `json:"priority"`
}

type ProviderResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Vendor     string    `json:"vendor"`
	Endpoint   string    `json:"endpoint,omitempty"`
	Region     string    `json:"region,omitempty"`
	Active     bool      `json:"active"`
	IsDefault  bool      `json:"default"`
	Priority   int       `json:"priority"`
	AlertCount int64     `json:"alert_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type GrantSecondsRequest struct {
	Seconds int `json:"seconds" validate:"required,gt=0"`
}
