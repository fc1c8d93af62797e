package usecase

import (
	"log"

	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/dto"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/lexivoice/pronounce-api/internal/repository"
)

type ProviderUsecase struct {
	providerRepo *repository.ProviderRepository
	userRepo     *repository.UserRepository
	alertRepo    *repository.AlertRepository
}

func NewProviderUsecase(providerRepo *repository.ProviderRepository, userRepo *repository.UserRepository, alertRepo *repository.AlertRepository) *ProviderUsecase {
	return &ProviderUsecase{providerRepo: providerRepo, userRepo: userRepo, alertRepo: alertRepo}
}

func (uc *ProviderUsecase) List() ([]dto.ProviderResponse, error) {
	providers, err := uc.providerRepo.List()
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProviderResponse, 0, len(providers))
	for _, p := range providers {
		count, err := uc.alertRepo.CountByProvider(p.ID)
		if err != nil {
			log.Printf("count alerts for provider %s failed: %v", p.Name, err)
		}
		out = append(out, dto.ProviderResponse{
			ID:         p.ID,
			Name:       p.Name,
			Vendor:     p.Vendor,
			Endpoint:   p.Endpoint,
			Region:     p.Region,
			Active:     p.Active,
			IsDefault:  p.IsDefault,
			Priority:   p.Priority,
			AlertCount: count,
			CreatedAt:  p.CreatedAt,
		})
	}
	return out, nil
}

func (uc *ProviderUsecase) Create(req *dto.ProviderRequest) (*model.AssessmentProvider, error) {
	p := &model.AssessmentProvider{
		Name:         req.Name,
		Vendor:       req.Vendor,
		Endpoint:     req.Endpoint,
		Region:       req.Region,
		AppIDEnv:     req.AppIDEnv,
		APIKeyEnv:    req.APIKeyEnv,
		APISecretEnv: req.APISecretEnv,
		Config:       req.Config,
		Active:       true,
		Priority:     req.Priority,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := uc.providerRepo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *ProviderUsecase) Update(id uuid.UUID, req *dto.ProviderRequest) (*model.AssessmentProvider, error) {
	p, err := uc.providerRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	p.Name = req.Name
	p.Vendor = req.Vendor
	p.Endpoint = req.Endpoint
	p.Region = req.Region
	p.AppIDEnv = req.AppIDEnv
	p.APIKeyEnv = req.APIKeyEnv
	p.APISecretEnv = req.APISecretEnv
	p.Config = req.Config
	p.Priority = req.Priority
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := uc.providerRepo.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *ProviderUsecase) Delete(id uuid.UUID) error {
	return uc.providerRepo.Delete(id)
}

func (uc *ProviderUsecase) SetDefault(id uuid.UUID) error {
	return uc.providerRepo.SetDefault(id)
}

func (uc *ProviderUsecase) GrantSeconds(userID uuid.UUID, seconds int) (int, error) {
	if err := uc.userRepo.GrantSeconds(userID, seconds); err != nil {
		return 0, err
	}
	return uc.userRepo.Balance(userID)
}

func (uc *ProviderUsecase) RecentAlerts(limit int) ([]model.ProviderAlert, error) {
	return uc.alertRepo.ListRecent(limit)
}
