package repository

import (
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/model"
	"gorm.io/gorm"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db}
}

// ListActive returns active providers in the order the failover loop tries
// them: default first, then by priority, newest rows breaking ties.
func (r *ProviderRepository) ListActive() ([]model.AssessmentProvider, error) {
	var providers []model.AssessmentProvider
	err := r.db.Where("active = ?", true).
		Order("is_default DESC").
		Order("priority DESC").
		Order("created_at DESC").
		Find(&providers).Error
	return providers, err
}

func (r *ProviderRepository) List() ([]model.AssessmentProvider, error) {
	var providers []model.AssessmentProvider
	err := r.db.Order("created_at DESC").Find(&providers).Error
	return providers, err
}

func (r *ProviderRepository) FindByID(id uuid.UUID) (*model.AssessmentProvider, error) {
	var p model.AssessmentProvider
	err := r.db.First(&p, "id = ?", id).Error
	return &p, err
}

func (r *ProviderRepository) Create(p *model.AssessmentProvider) error {
	return r.db.Create(p).Error
}

func (r *ProviderRepository) Update(p *model.AssessmentProvider) error {
	return r.db.Save(p).Error
}

func (r *ProviderRepository) Delete(id uuid.UUID) error {
	res := r.db.Delete(&model.AssessmentProvider{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetDefault marks one provider as the default. The previous default is
// cleared in the same transaction so at most one row ever holds the flag.
func (r *ProviderRepository) SetDefault(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.AssessmentProvider{}).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		res := tx.Model(&model.AssessmentProvider{}).
			Where("id = ?", id).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
