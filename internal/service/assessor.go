package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexivoice/pronounce-api/internal/audio"
	"github.com/lexivoice/pronounce-api/internal/model"
)

// requestTimeout bounds every vendor round trip. A timed-out attempt cancels
// only itself; the orchestrator moves on to the next candidate.
const requestTimeout = 15 * time.Second

const (
	// Words scoring below this carry their phoneme breakdown; better words
	// ship without one to keep payloads small.
	phonemeDetailThreshold = 85.0
	// A phoneme at or above this accuracy counts as correctly produced.
	phonemeCorrectScore = 60.0
)

// EvalRequest is the vendor-independent assessment input. Audio is the
// original client upload; Info is its parsed container so adapters never
// re-derive duration from a resampled copy.
type EvalRequest struct {
	RefText  string
	Language string
	Audio    []byte
	Info     *audio.WavInfo
}

type PhonemeScore struct {
	Phoneme       string  `json:"phoneme"`
	AccuracyScore float64 `json:"accuracy_score"`
	IsCorrect     bool    `json:"is_correct"`
	ErrorType     string  `json:"error_type,omitempty"` // missing | extra | mispronounced | replaced
}

type WordScore struct {
	Word          string         `json:"word"`
	AccuracyScore float64        `json:"accuracy_score"`
	FluencyScore  float64        `json:"fluency_score,omitempty"`
	ErrorType     string         `json:"error_type,omitempty"`
	Phonemes      []PhonemeScore `json:"phonemes,omitempty"`
}

// EvalResult is the reconciled result shape shared by all vendors. Scores are
// normalized to a 0-100 scale.
type EvalResult struct {
	OverallScore       float64
	PronunciationScore float64
	AccuracyScore      float64
	FluencyScore       float64
	CompletenessScore  float64
	Words              []WordScore
	Feedback           string
	RawResponse        string
}

// SpeechAssessor is the single capability every vendor adapter implements.
type SpeechAssessor interface {
	Evaluate(req *EvalRequest, provider *model.AssessmentProvider) (*EvalResult, error)
}

// AssessorRegistry maps a provider vendor type to its adapter.
type AssessorRegistry map[string]SpeechAssessor

func NewAssessorRegistry() AssessorRegistry {
	return AssessorRegistry{
		model.VendorAzure:   NewAzureAssessor(),
		model.VendorTencent: NewTencentAssessor(),
		model.VendorIfly:    NewIflyAssessor(),
	}
}

func (r AssessorRegistry) For(vendor string) (SpeechAssessor, error) {
	a, ok := r[vendor]
	if !ok {
		return nil, fmt.Errorf("no speech assessor registered for vendor %q", vendor)
	}
	return a, nil
}

// buildFeedback derives a short human-readable summary from the normalized
// scores, listing at most three words worth practicing.
func buildFeedback(overall float64, words []WordScore) string {
	var summary string
	switch {
	case overall >= 90:
		summary = "Excellent pronunciation, keep it up!"
	case overall >= 75:
		summary = "Good pronunciation with room to polish."
	case overall >= 60:
		summary = "Understandable, but several words need work."
	default:
		summary = "Keep practicing, focus on the words below."
	}

	var weak []string
	for _, w := range words {
		if w.AccuracyScore < phonemeDetailThreshold {
			weak = append(weak, w.Word)
		}
		if len(weak) == 3 {
			break
		}
	}
	if len(weak) > 0 {
		summary += " Practice: " + strings.Join(weak, ", ") + "."
	}
	return summary
}
