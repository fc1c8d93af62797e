package repository

import (
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/model"
	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db}
}

func (r *AlertRepository) Create(a *model.ProviderAlert) error {
	return r.db.Create(a).Error
}

func (r *AlertRepository) ListRecent(limit int) ([]model.ProviderAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	var alerts []model.ProviderAlert
	err := r.db.Order("created_at DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepository) CountByProvider(providerID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Model(&model.ProviderAlert{}).
		Where("provider_id = ?", providerID).
		Count(&n).Error
	return n, err
}
