package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/model"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientBalance means a debit would have driven the balance
	// negative; nothing was charged.
	ErrInsufficientBalance = errors.New("insufficient assessment balance")
	ErrCodeAlreadyRedeemed = errors.New("redemption code already used")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) FindByID(id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.First(&u, "id = ?", id).Error
	return &u, err
}

func (r *UserRepository) Balance(id uuid.UUID) (int, error) {
	u, err := r.FindByID(id)
	if err != nil {
		return 0, err
	}
	return u.AssessSeconds, nil
}

// DebitSeconds charges an assessment in a single conditional update. The
// guard keeps the balance from ever going negative under concurrent requests.
func (r *UserRepository) DebitSeconds(id uuid.UUID, seconds int) error {
	res := r.db.Model(&model.User{}).
		Where("id = ? AND assess_seconds >= ?", id, seconds).
		UpdateColumn("assess_seconds", gorm.Expr("assess_seconds - ?", seconds))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *UserRepository) GrantSeconds(id uuid.UUID, seconds int) error {
	res := r.db.Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("assess_seconds", gorm.Expr("assess_seconds + ?", seconds))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Redeem consumes a one-time code and credits its seconds to the user.
func (r *UserRepository) Redeem(userID uuid.UUID, code string) (int, error) {
	var granted int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var rc model.RedemptionCode
		if err := tx.First(&rc, "code = ?", code).Error; err != nil {
			return err
		}
		if rc.RedeemedBy != nil {
			return ErrCodeAlreadyRedeemed
		}

		now := time.Now()
		res := tx.Model(&model.RedemptionCode{}).
			Where("code = ? AND redeemed_by IS NULL", code).
			Updates(map[string]any{"redeemed_by": userID, "redeemed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCodeAlreadyRedeemed
		}

		if err := tx.Model(&model.User{}).
			Where("id = ?", userID).
			UpdateColumn("assess_seconds", gorm.Expr("assess_seconds + ?", rc.Seconds)).Error; err != nil {
			return err
		}
		granted = rc.Seconds
		return nil
	})
	return granted, err
}
