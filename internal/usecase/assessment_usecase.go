package usecase

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/audio"
	"github.com/lexivoice/pronounce-api/internal/dto"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/lexivoice/pronounce-api/internal/repository"
	"github.com/lexivoice/pronounce-api/internal/service"
	"gorm.io/gorm"
)

const defaultLanguage = "en-US"

type AssessmentUsecase struct {
	providerRepo   *repository.ProviderRepository
	userRepo       *repository.UserRepository
	assessmentRepo *repository.AssessmentRepository
	alertRepo      *repository.AlertRepository
	assessors      service.AssessorRegistry
}

func NewAssessmentUsecase(
	providerRepo *repository.ProviderRepository,
	userRepo *repository.UserRepository,
	assessmentRepo *repository.AssessmentRepository,
	alertRepo *repository.AlertRepository,
	assessors service.AssessorRegistry,
) *AssessmentUsecase {
	return &AssessmentUsecase{
		providerRepo:   providerRepo,
		userRepo:       userRepo,
		assessmentRepo: assessmentRepo,
		alertRepo:      alertRepo,
		assessors:      assessors,
	}
}

// Assess runs one pronunciation assessment end to end: balance check, audio
// decode, provider failover, billing, persistence. No vendor is contacted
// when the user has no seconds left, and nothing is charged unless a vendor
// returned a usable result.
func (uc *AssessmentUsecase) Assess(userID uuid.UUID, req *dto.AssessmentRequest) (*dto.AssessmentResponse, error) {
	balance, err := uc.userRepo.Balance(userID)
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		return nil, service.NewAssessmentError(service.ErrInsufficientBalance, "no assessment seconds remaining", "")
	}

	raw, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		return nil, service.NewAssessmentError(service.ErrInvalidRequest, "audioBase64 is not valid base64", err.Error())
	}
	info := audio.ParseWAV(raw)
	if info == nil {
		return nil, service.NewAssessmentError(service.ErrInvalidRequest, "audio must be a PCM WAV file", "")
	}

	language := req.Language
	if language == "" {
		language = defaultLanguage
	}
	evalReq := &service.EvalRequest{
		RefText:  req.Text,
		Language: language,
		Audio:    raw,
		Info:     info,
	}

	candidates, err := uc.providerRepo.ListActive()
	if err != nil {
		return nil, err
	}
	candidates = preferProvider(candidates, req.ProviderID)
	if len(candidates) == 0 {
		return nil, service.NewAssessmentError(service.ErrServiceUnavailable, "no assessment provider is configured", "")
	}

	for i := range candidates {
		provider := &candidates[i]
		assessor, err := uc.assessors.For(provider.Vendor)
		if err != nil {
			log.Printf("provider %s skipped: %v", provider.Name, err)
			continue
		}

		result, err := assessor.Evaluate(evalReq, provider)
		if err != nil {
			kind := service.KindOf(err)
			uc.recordAlert(provider, kind, err)
			if kind == service.ErrInvalidRequest {
				// The request itself is bad; every other vendor would
				// reject it the same way.
				return nil, err
			}
			log.Printf("provider %s failed (%s), trying next: %v", provider.Name, kind, err)
			continue
		}

		return uc.finish(userID, req, provider, info, result)
	}

	return nil, service.NewAssessmentError(service.ErrServiceUnavailable, "assessment service is temporarily unavailable", "")
}

// preferProvider moves the client-requested provider to the front of the
// candidate list. An unknown or inactive id falls back to the stored order.
func preferProvider(candidates []model.AssessmentProvider, providerID string) []model.AssessmentProvider {
	if providerID == "" {
		return candidates
	}
	id, err := uuid.Parse(providerID)
	if err != nil {
		return candidates
	}
	for i, p := range candidates {
		if p.ID == id {
			ordered := make([]model.AssessmentProvider, 0, len(candidates))
			ordered = append(ordered, p)
			ordered = append(ordered, candidates[:i]...)
			ordered = append(ordered, candidates[i+1:]...)
			return ordered
		}
	}
	return candidates
}

// finish charges the user and persists the result. The charge is derived from
// the original upload's duration, never from a resampled copy.
func (uc *AssessmentUsecase) finish(userID uuid.UUID, req *dto.AssessmentRequest, provider *model.AssessmentProvider, info *audio.WavInfo, result *service.EvalResult) (*dto.AssessmentResponse, error) {
	charge := chargeSeconds(info.Duration)
	if err := uc.userRepo.DebitSeconds(userID, charge); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, service.NewAssessmentError(service.ErrInsufficientBalance, "not enough seconds to cover this assessment", "")
		}
		return nil, err
	}

	wordsJSON, err := json.Marshal(result.Words)
	if err != nil {
		wordsJSON = []byte("[]")
	}
	record := &model.Assessment{
		UserID:             userID,
		VideoID:            req.VideoID,
		RefText:            req.Text,
		Language:           req.Language,
		OverallScore:       result.OverallScore,
		PronunciationScore: result.PronunciationScore,
		AccuracyScore:      result.AccuracyScore,
		FluencyScore:       result.FluencyScore,
		CompletenessScore:  result.CompletenessScore,
		Words:              string(wordsJSON),
		Feedback:           result.Feedback,
		AudioDuration:      info.Duration,
		SecondsCharged:     charge,
		IsBilled:           true,
		ProviderID:         provider.ID,
		ProviderName:       provider.Name,
		ProviderVendor:     provider.Vendor,
		RawResponse:        result.RawResponse,
	}
	if err := uc.assessmentRepo.Create(record); err != nil {
		// The debit already happened; surface the record anyway so the
		// user is not charged for nothing.
		log.Printf("persist assessment for user %s failed: %v", userID, err)
	}

	remaining, err := uc.userRepo.Balance(userID)
	if err != nil {
		log.Printf("read balance for user %s failed: %v", userID, err)
	}

	return &dto.AssessmentResponse{
		AssessmentID:       record.ID,
		OverallScore:       result.OverallScore,
		PronunciationScore: result.PronunciationScore,
		AccuracyScore:      result.AccuracyScore,
		FluencyScore:       result.FluencyScore,
		CompletenessScore:  result.CompletenessScore,
		WordsResult:        result.Words,
		Feedback:           result.Feedback,
		SecondsUsed:        charge,
		RemainingSeconds:   remaining,
		Billed:             true,
		Provider:           provider.Name,
	}, nil
}

// chargeSeconds rounds the audio duration up to whole seconds with a one
// second minimum, so even a half-second clip costs something.
func chargeSeconds(duration float64) int {
	charge := int(math.Ceil(duration))
	if charge < 1 {
		charge = 1
	}
	return charge
}

func (uc *AssessmentUsecase) recordAlert(provider *model.AssessmentProvider, kind service.ErrorKind, evalErr error) {
	alert := &model.ProviderAlert{
		ProviderID:     provider.ID,
		ProviderName:   provider.Name,
		ProviderVendor: provider.Vendor,
		Kind:           string(kind),
		Message:        evalErr.Error(),
	}
	alert.RawPayload = service.AsAssessmentError(evalErr).Raw
	if err := uc.alertRepo.Create(alert); err != nil {
		log.Printf("record alert for provider %s failed: %v", provider.Name, err)
	}
}

// GetResult returns one stored assessment, refusing rows owned by other users.
func (uc *AssessmentUsecase) GetResult(userID, id uuid.UUID) (*model.Assessment, error) {
	a, err := uc.assessmentRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (uc *AssessmentUsecase) ListResults(userID uuid.UUID, page, pageSize int) ([]dto.AssessmentSummary, int64, error) {
	items, total, err := uc.assessmentRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]dto.AssessmentSummary, 0, len(items))
	for _, a := range items {
		summaries = append(summaries, dto.AssessmentSummary{
			ID:           a.ID,
			VideoID:      a.VideoID,
			RefText:      a.RefText,
			OverallScore: a.OverallScore,
			Provider:     a.ProviderName,
			CreatedAt:    a.CreatedAt,
		})
	}
	return summaries, total, nil
}

func (uc *AssessmentUsecase) Balance(userID uuid.UUID) (*dto.BalanceResponse, error) {
	seconds, err := uc.userRepo.Balance(userID)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceResponse{
		RemainingSeconds: seconds,
		RemainingMinutes: math.Round(float64(seconds)/60*100) / 100,
	}, nil
}

func (uc *AssessmentUsecase) Redeem(userID uuid.UUID, code string) (*dto.RedeemResponse, error) {
	granted, err := uc.userRepo.Redeem(userID, code)
	if err != nil {
		return nil, err
	}
	remaining, err := uc.userRepo.Balance(userID)
	if err != nil {
		return nil, err
	}
	return &dto.RedeemResponse{GrantedSeconds: granted, RemainingSeconds: remaining}, nil
}
