package handler

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/dto"
	"github.com/lexivoice/pronounce-api/internal/middleware"
	"github.com/lexivoice/pronounce-api/internal/repository"
	"github.com/lexivoice/pronounce-api/internal/response"
	"github.com/lexivoice/pronounce-api/internal/service"
	"github.com/lexivoice/pronounce-api/internal/usecase"
	"github.com/lexivoice/pronounce-api/internal/util"
	"gorm.io/gorm"
)

var validate = validator.New()

type AssessmentHandler struct {
	uc *usecase.AssessmentUsecase
}

func NewAssessmentHandler(uc *usecase.AssessmentUsecase) *AssessmentHandler {
	return &AssessmentHandler{uc: uc}
}

func (h *AssessmentHandler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api", middleware.Auth())
	api.Post("/assessment", middleware.RateLimiter(10, time.Minute), h.Assess)
	api.Get("/assessment/:id", h.Result)
	api.Get("/assessments", h.History)
	api.Get("/me/balance", h.Balance)
	api.Post("/redeem", h.Redeem)
}

// Assess runs one pronunciation assessment. Unlike the rest of the API this
// endpoint answers in the billing-aware shape clients settle against: either
// the scored result or {error, billed:false}.
func (h *AssessmentHandler) Assess(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return assessmentFailure(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req dto.AssessmentRequest
	if err := c.BodyParser(&req); err != nil {
		return assessmentFailure(c, fiber.StatusBadRequest, "request body is not valid JSON")
	}
	if err := validate.Struct(&req); err != nil {
		return assessmentFailure(c, fiber.StatusBadRequest, "text and audioBase64 are required")
	}

	resp, err := h.uc.Assess(userID, &req)
	if err != nil {
		switch service.KindOf(err) {
		case service.ErrInsufficientBalance:
			return assessmentFailure(c, fiber.StatusPaymentRequired, service.AsAssessmentError(err).Message)
		case service.ErrServiceUnavailable:
			return assessmentFailure(c, fiber.StatusServiceUnavailable, service.AsAssessmentError(err).Message)
		case service.ErrInvalidRequest:
			return assessmentFailure(c, fiber.StatusInternalServerError, service.AsAssessmentError(err).Message)
		default:
			return assessmentFailure(c, fiber.StatusInternalServerError, "assessment failed")
		}
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// assessmentFailure is the failed-assessment body. billed is always false
// here; a debited request always answers with the scored result.
func assessmentFailure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":  message,
		"billed": false,
	})
}

func (h *AssessmentHandler) Result(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusUnauthorized, Message: "Unauthorized"}, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Invalid assessment id"}, err)
	}

	a, err := h.uc.GetResult(userID, id)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusNotFound, Message: "Assessment not found"}, err)
	}

	var words json.RawMessage
	if a.Words != "" {
		words = json.RawMessage(a.Words)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get assessment",
		Data: fiber.Map{
			"id":                  a.ID,
			"videoId":             a.VideoID,
			"ref_text":            a.RefText,
			"language":            a.Language,
			"overall_score":       a.OverallScore,
			"pronunciation_score": a.PronunciationScore,
			"accuracy_score":      a.AccuracyScore,
			"fluency_score":       a.FluencyScore,
			"completeness_score":  a.CompletenessScore,
			"words_result":        words,
			"feedback":            a.Feedback,
			"audio_duration":      a.AudioDuration,
			"seconds_charged":     a.SecondsCharged,
			"billed":              a.IsBilled,
			"provider":            a.ProviderName,
			"created_at":          a.CreatedAt,
		},
	})
}

func (h *AssessmentHandler) History(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusUnauthorized, Message: "Unauthorized"}, err)
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 10)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	items, total, err := h.uc.ListResults(userID, page, pageSize)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to list assessments"}, err)
	}

	totalPages := int64(math.Ceil(float64(total) / float64(pageSize)))
	from := 0
	to := 0
	if len(items) > 0 {
		from = (page-1)*pageSize + 1
		to = from + len(items) - 1
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get assessments",
		Data:    items,
		Pagination: &response.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
			TotalItems: total,
			HasMore:    int64(page) < totalPages,
			From:       from,
			To:         to,
		},
	})
}

func (h *AssessmentHandler) Balance(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusUnauthorized, Message: "Unauthorized"}, err)
	}
	balance, err := h.uc.Balance(userID)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to read balance"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get balance",
		Data:    balance,
	})
}

func (h *AssessmentHandler) Redeem(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusUnauthorized, Message: "Unauthorized"}, err)
	}

	var req dto.RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Request body is not valid JSON"}, err)
	}
	if err := validate.Struct(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "code is required"}, err)
	}

	resp, err := h.uc.Redeem(userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusNotFound, Message: "Redemption code not found"}, err)
		case errors.Is(err, repository.ErrCodeAlreadyRedeemed):
			return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusConflict, Message: "Redemption code already used"}, err)
		default:
			return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to redeem code"}, err)
		}
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success redeem code",
		Data:    resp,
	})
}
