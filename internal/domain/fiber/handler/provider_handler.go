package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/dto"
	"github.com/lexivoice/pronounce-api/internal/middleware"
	"github.com/lexivoice/pronounce-api/internal/usecase"
	"github.com/lexivoice/pronounce-api/internal/util"
	"gorm.io/gorm"
)

// ProviderHandler exposes the admin surface: provider management, manual
// balance grants, and the provider failure log.
type ProviderHandler struct {
	uc *usecase.ProviderUsecase
}

func NewProviderHandler(uc *usecase.ProviderUsecase) *ProviderHandler {
	return &ProviderHandler{uc: uc}
}

func (h *ProviderHandler) RegisterRoutes(app *fiber.App) {
	admin := app.Group("/api/admin", middleware.Auth(), middleware.RequireAdmin())
	admin.Get("/providers", h.List)
	admin.Post("/providers", h.Create)
	admin.Put("/providers/:id", h.Update)
	admin.Delete("/providers/:id", h.Delete)
	admin.Put("/providers/:id/default", h.SetDefault)
	admin.Post("/users/:id/seconds", h.GrantSeconds)
	admin.Get("/alerts", h.Alerts)
}

func (h *ProviderHandler) List(c *fiber.Ctx) error {
	providers, err := h.uc.List()
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to list providers"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get providers",
		Data:    providers,
	})
}

func (h *ProviderHandler) Create(c *fiber.Ctx) error {
	var req dto.ProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Request body is not valid JSON"}, err)
	}
	if err := validate.Struct(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "name is required and vendor must be azure, tencent or ifly"}, err)
	}

	p, err := h.uc.Create(&req)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to create provider"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: "Success create provider",
		Data:    p,
	})
}

func (h *ProviderHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Invalid provider id"}, err)
	}
	var req dto.ProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Request body is not valid JSON"}, err)
	}
	if err := validate.Struct(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "name is required and vendor must be azure, tencent or ifly"}, err)
	}

	p, err := h.uc.Update(id, &req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusNotFound, Message: "Provider not found"}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to update provider"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success update provider",
		Data:    p,
	})
}

func (h *ProviderHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Invalid provider id"}, err)
	}
	if err := h.uc.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusNotFound, Message: "Provider not found"}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to delete provider"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success delete provider",
	})
}

func (h *ProviderHandler) SetDefault(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Invalid provider id"}, err)
	}
	if err := h.uc.SetDefault(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusNotFound, Message: "Provider not found"}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to set default provider"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success set default provider",
	})
}

func (h *ProviderHandler) GrantSeconds(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Invalid user id"}, err)
	}
	var req dto.GrantSecondsRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "Request body is not valid JSON"}, err)
	}
	if err := validate.Struct(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusBadRequest, Message: "seconds must be greater than zero"}, err)
	}

	balance, err := h.uc.GrantSeconds(userID, req.Seconds)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{Code: fiber.StatusNotFound, Message: "User not found"}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to grant seconds"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success grant seconds",
		Data:    fiber.Map{"granted_seconds": req.Seconds, "remaining_seconds": balance},
	})
}

func (h *ProviderHandler) Alerts(c *fiber.Ctx) error {
	alerts, err := h.uc.RecentAlerts(c.QueryInt("limit", 50))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{Message: "Failed to list alerts"}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get alerts",
		Data:    alerts,
	})
}
