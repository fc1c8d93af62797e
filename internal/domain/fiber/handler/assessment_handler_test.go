package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/audio"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/lexivoice/pronounce-api/internal/repository"
	"github.com/lexivoice/pronounce-api/internal/service"
	"github.com/lexivoice/pronounce-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "handler-test-secret"

type stubAssessor struct {
	err error
}

func (s *stubAssessor) Evaluate(req *service.EvalRequest, provider *model.AssessmentProvider) (*service.EvalResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.EvalResult{
		OverallScore:       91,
		PronunciationScore: 90,
		AccuracyScore:      92,
		FluencyScore:       89,
		CompletenessScore:  100,
		Words:              []service.WordScore{{Word: "hello", AccuracyScore: 91}},
		Feedback:           "Excellent pronunciation, keep it up!",
	}, nil
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	user   *model.User
	admin  *model.User
	stub   *stubAssessor
	userID uuid.UUID
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", testJWTSecret)

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

	user := &model.User{Email: "student@example.com", Role: "user", AssessSeconds: 60}
	admin := &model.User{Email: "admin@example.com", Role: "admin"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(&model.AssessmentProvider{
		Name: "primary", Vendor: model.VendorAzure, Active: true, IsDefault: true,
	}).Error)

	stub := &stubAssessor{}
	registry := service.AssessorRegistry{model.VendorAzure: stub}

	providerRepo := repository.NewProviderRepository(db)
	userRepo := repository.NewUserRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	app := fiber.New()
	NewAssessmentHandler(usecase.NewAssessmentUsecase(providerRepo, userRepo, assessmentRepo, alertRepo, registry)).RegisterRoutes(app)
	NewProviderHandler(usecase.NewProviderUsecase(providerRepo, userRepo, alertRepo)).RegisterRoutes(app)

	return &testEnv{app: app, db: db, user: user, admin: admin, stub: stub, userID: user.ID}
}

func bearerToken(t *testing.T, user *model.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func jsonRequest(t *testing.T, method, path, auth string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func assessmentBody(t *testing.T) map[string]any {
	t.Helper()
	wav, err := audio.EncodeWAV(make([]int16, 16000), 16000)
	require.NoError(t, err)
	return map[string]any{
		"text":        "hello world",
		"audioBase64": base64.StdEncoding.EncodeToString(wav),
	}
}

func TestAssessEndpointRequiresAuth(t *testing.T) {
	env := setupApp(t)

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/assessment", "", assessmentBody(t)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAssessEndpointSuccess(t *testing.T) {
	env := setupApp(t)

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/assessment", bearerToken(t, env.user), assessmentBody(t)), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, 91.0, body["overall_score"])
	assert.Equal(t, true, body["billed"])
	assert.Equal(t, "primary", body["provider"])
	assert.Equal(t, 1.0, body["seconds_used"])
	assert.Equal(t, 59.0, body["remaining_seconds"])
}

func TestAssessEndpointInsufficientBalance(t *testing.T) {
	env := setupApp(t)
	require.NoError(t, env.db.Model(env.user).UpdateColumn("assess_seconds", 0).Error)

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/assessment", bearerToken(t, env.user), assessmentBody(t)), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["billed"])
	assert.NotEmpty(t, body["error"])
}

func TestAssessEndpointVendorOutage(t *testing.T) {
	env := setupApp(t)
	env.stub.err = service.NewAssessmentError(service.ErrServiceUnavailable, "vendor down", "")

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/assessment", bearerToken(t, env.user), assessmentBody(t)), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["billed"])
}

func TestAssessEndpointValidation(t *testing.T) {
	env := setupApp(t)

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/assessment", bearerToken(t, env.user), map[string]any{"text": "missing audio"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBalanceEndpoint(t *testing.T) {
	env := setupApp(t)

	resp, err := env.app.Test(jsonRequest(t, http.MethodGet, "/api/me/balance", bearerToken(t, env.user), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, 60.0, data["remaining_seconds"])
	assert.Equal(t, 1.0, data["remaining_minutes"])
}

func TestRedeemEndpoint(t *testing.T) {
	env := setupApp(t)
	require.NoError(t, env.db.Create(&model.RedemptionCode{Code: "EXTRA30", Seconds: 30}).Error)

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/redeem", bearerToken(t, env.user), map[string]any{"code": "EXTRA30"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, 30.0, data["granted_seconds"])
	assert.Equal(t, 90.0, data["remaining_seconds"])

	// Second redemption of the same code is refused.
	resp, err = env.app.Test(jsonRequest(t, http.MethodPost, "/api/redeem", bearerToken(t, env.user), map[string]any{"code": "EXTRA30"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := setupApp(t)

	resp, err := env.app.Test(jsonRequest(t, http.MethodGet, "/api/admin/providers", bearerToken(t, env.user), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = env.app.Test(jsonRequest(t, http.MethodGet, "/api/admin/providers", bearerToken(t, env.admin), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminProviderLifecycle(t *testing.T) {
	env := setupApp(t)
	auth := bearerToken(t, env.admin)

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/admin/providers", auth, map[string]any{
		"name":   "backup",
		"vendor": "tencent",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	created := body["data"].(map[string]any)
	id := created["id"].(string)

	resp, err = env.app.Test(jsonRequest(t, http.MethodPut, "/api/admin/providers/"+id+"/default", auth, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var defaults []model.AssessmentProvider
	require.NoError(t, env.db.Where("is_default = ?", true).Find(&defaults).Error)
	require.Len(t, defaults, 1)
	assert.Equal(t, "backup", defaults[0].Name)

	resp, err = env.app.Test(jsonRequest(t, http.MethodPost, "/api/admin/providers", auth, map[string]any{
		"name":   "bogus",
		"vendor": "not-a-vendor",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminGrantSeconds(t *testing.T) {
	env := setupApp(t)

	resp, err := env.app.Test(jsonRequest(t, http.MethodPost, "/api/admin/users/"+env.userID.String()+"/seconds", bearerToken(t, env.admin), map[string]any{"seconds": 300}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, 360.0, data["remaining_seconds"])
}
