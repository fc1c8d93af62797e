package repository

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.AssessmentProvider{},
		&model.Assessment{},
		&model.ProviderAlert{},
		&model.RedemptionCode{},
	))
	return db
}

func TestProviderListActiveOrdering(t *testing.T) {
	db := testDB(t)
	repo := NewProviderRepository(db)

	now := time.Now()
	oldLowPriority := &model.AssessmentProvider{Name: "old-low", Vendor: model.VendorIfly, Active: true, Priority: 1, CreatedAt: now.Add(-3 * time.Hour)}
	newHighPriority := &model.AssessmentProvider{Name: "new-high", Vendor: model.VendorAzure, Active: true, Priority: 5, CreatedAt: now.Add(-2 * time.Hour)}
	defaultProvider := &model.AssessmentProvider{Name: "default", Vendor: model.VendorTencent, Active: true, IsDefault: true, Priority: 0, CreatedAt: now.Add(-1 * time.Hour)}
	inactive := &model.AssessmentProvider{Name: "inactive", Vendor: model.VendorAzure, Active: false, Priority: 99, CreatedAt: now}

	for _, p := range []*model.AssessmentProvider{oldLowPriority, newHighPriority, defaultProvider, inactive} {
		require.NoError(t, repo.Create(p))
	}

	got, err := repo.ListActive()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "default", got[0].Name)
	assert.Equal(t, "new-high", got[1].Name)
	assert.Equal(t, "old-low", got[2].Name)
}

func TestProviderSetDefaultClearsPrevious(t *testing.T) {
	db := testDB(t)
	repo := NewProviderRepository(db)

	first := &model.AssessmentProvider{Name: "first", Vendor: model.VendorAzure, Active: true, IsDefault: true}
	second := &model.AssessmentProvider{Name: "second", Vendor: model.VendorTencent, Active: true}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	require.NoError(t, repo.SetDefault(second.ID))

	var defaults []model.AssessmentProvider
	require.NoError(t, db.Where("is_default = ?", true).Find(&defaults).Error)
	require.Len(t, defaults, 1)
	assert.Equal(t, second.ID, defaults[0].ID)

	assert.ErrorIs(t, repo.SetDefault(uuid.New()), gorm.ErrRecordNotFound)
}

func TestDebitSecondsNeverGoesNegative(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	u := &model.User{Email: "a@b.c", AssessSeconds: 10}
	require.NoError(t, db.Create(u).Error)

	require.NoError(t, repo.DebitSeconds(u.ID, 4))
	balance, err := repo.Balance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, balance)

	// A debit larger than the balance is refused in full.
	assert.ErrorIs(t, repo.DebitSeconds(u.ID, 7), ErrInsufficientBalance)
	balance, err = repo.Balance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, balance)

	require.NoError(t, repo.DebitSeconds(u.ID, 6))
	balance, err = repo.Balance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestRedeemIsOneShot(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	u := &model.User{Email: "a@b.c", AssessSeconds: 0}
	other := &model.User{Email: "d@e.f", AssessSeconds: 0}
	require.NoError(t, db.Create(u).Error)
	require.NoError(t, db.Create(other).Error)
	require.NoError(t, db.Create(&model.RedemptionCode{Code: "WELCOME60", Seconds: 60}).Error)

	granted, err := repo.Redeem(u.ID, "WELCOME60")
	require.NoError(t, err)
	assert.Equal(t, 60, granted)

	balance, err := repo.Balance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, balance)

	_, err = repo.Redeem(other.ID, "WELCOME60")
	assert.ErrorIs(t, err, ErrCodeAlreadyRedeemed)

	_, err = repo.Redeem(u.ID, "NOSUCHCODE")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGrantSeconds(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	u := &model.User{Email: "a@b.c", AssessSeconds: 5}
	require.NoError(t, db.Create(u).Error)

	require.NoError(t, repo.GrantSeconds(u.ID, 120))
	balance, err := repo.Balance(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 125, balance)

	assert.ErrorIs(t, repo.GrantSeconds(uuid.New(), 10), gorm.ErrRecordNotFound)
}

func TestAssessmentListByUserPagination(t *testing.T) {
	db := testDB(t)
	repo := NewAssessmentRepository(db)

	userID := uuid.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(&model.Assessment{
			UserID:    userID,
			RefText:   "hello",
			IsBilled:  true,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(&model.Assessment{UserID: uuid.New(), RefText: "other user"}))

	items, total, err := repo.ListByUser(userID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))

	items, _, err = repo.ListByUser(userID, 3, 2)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
