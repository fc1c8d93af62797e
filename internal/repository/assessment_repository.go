package repository

import (
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/model"
	"gorm.io/gorm"
)

type AssessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db}
}

func (r *AssessmentRepository) Create(a *model.Assessment) error {
	return r.db.Create(a).Error
}

func (r *AssessmentRepository) FindByID(id uuid.UUID) (*model.Assessment, error) {
	var a model.Assessment
	err := r.db.First(&a, "id = ?", id).Error
	return &a, err
}

// ListByUser returns a page of the user's assessment history, newest first,
// along with the total row count for pagination.
func (r *AssessmentRepository) ListByUser(userID uuid.UUID, page, pageSize int) ([]model.Assessment, int64, error) {
	var total int64
	if err := r.db.Model(&model.Assessment{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Assessment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}
