package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/tidwall/gjson"
)

// AzureAssessor scores speech against the Azure pronunciation assessment API.
// The per-request scoring config travels as a base64 JSON header; the body is
// the raw WAV upload.
type AzureAssessor struct {
	client *resty.Client
}

func NewAzureAssessor() *AzureAssessor {
	return &AzureAssessor{client: resty.New().SetTimeout(requestTimeout)}
}

func (a *AzureAssessor) Evaluate(req *EvalRequest, provider *model.AssessmentProvider) (*EvalResult, error) {
	key := ResolveCredential(provider.Config, "api_key", provider.APIKeyEnv, "AZURE_SPEECH_KEY")
	if key == "" {
		return nil, NewAssessmentError(ErrAuthFailed, "azure speech key is not configured", "")
	}

	region := provider.Region
	if region == "" {
		region = gjson.Get(provider.Config, "region").String()
	}
	endpoint := provider.Endpoint
	if endpoint == "" {
		if region == "" {
			return nil, NewAssessmentError(ErrAuthFailed, "azure region is not configured", "")
		}
		endpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", region)
	}

	language := req.Language
	if language == "" {
		language = "en-US"
	}

	assessConfig, _ := json.Marshal(map[string]any{
		"ReferenceText": req.RefText,
		"GradingSystem": "HundredMark",
		"Granularity":   "Phoneme",
		"Dimension":     "Comprehensive",
		"EnableMiscue":  true,
	})

	resp, err := a.client.R().
		SetHeader("Ocp-Apim-Subscription-Key", key).
		SetHeader("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(assessConfig)).
		SetHeader("Content-Type", fmt.Sprintf("audio/wav; codecs=audio/pcm; samplerate=%d", req.Info.SampleRate)).
		SetHeader("Accept", "application/json").
		SetQueryParam("language", language).
		SetBody(req.Audio).
		Post(endpoint)
	if err != nil {
		return nil, transportError("azure", err)
	}

	raw := resp.String()
	if resp.StatusCode() != http.StatusOK {
		return nil, NewAssessmentError(
			KindFromHTTPStatus(resp.StatusCode()),
			fmt.Sprintf("azure speech returned HTTP %d", resp.StatusCode()),
			raw,
		)
	}

	if status := gjson.Get(raw, "RecognitionStatus").String(); status != "Success" {
		return nil, NewAssessmentError(azureStatusKind(status), "azure recognition status: "+status, raw)
	}

	best := gjson.Get(raw, "NBest.0")
	if !best.Exists() {
		return nil, NewAssessmentError(ErrUnknown, "azure response has no recognition alternatives", raw)
	}

	result := &EvalResult{
		OverallScore:       best.Get("PronScore").Float(),
		PronunciationScore: best.Get("PronScore").Float(),
		AccuracyScore:      best.Get("AccuracyScore").Float(),
		FluencyScore:       best.Get("FluencyScore").Float(),
		CompletenessScore:  best.Get("CompletenessScore").Float(),
		RawResponse:        raw,
	}

	best.Get("Words").ForEach(func(_, w gjson.Result) bool {
		ws := WordScore{
			Word:          w.Get("Word").String(),
			AccuracyScore: w.Get("AccuracyScore").Float(),
			ErrorType:     azureErrorType(w.Get("ErrorType").String()),
		}
		if ws.AccuracyScore < phonemeDetailThreshold {
			w.Get("Phonemes").ForEach(func(_, p gjson.Result) bool {
				score := p.Get("AccuracyScore").Float()
				ps := PhonemeScore{
					Phoneme:       p.Get("Phoneme").String(),
					AccuracyScore: score,
					IsCorrect:     score >= phonemeCorrectScore,
				}
				if !ps.IsCorrect {
					ps.ErrorType = "mispronounced"
				}
				ws.Phonemes = append(ws.Phonemes, ps)
				return true
			})
		}
		result.Words = append(result.Words, ws)
		return true
	})

	result.Feedback = buildFeedback(result.OverallScore, result.Words)
	return result, nil
}

func azureStatusKind(status string) ErrorKind {
	switch status {
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		// The recording itself is unusable; another vendor cannot fix it.
		return ErrInvalidRequest
	case "Error":
		return ErrServiceUnavailable
	default:
		return ErrUnknown
	}
}

func azureErrorType(errorType string) string {
	switch errorType {
	case "Omission":
		return "missing"
	case "Insertion":
		return "extra"
	case "Mispronunciation":
		return "mispronounced"
	default:
		return ""
	}
}
