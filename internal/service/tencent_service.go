package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/lexivoice/pronounce-api/internal/audio"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/tidwall/gjson"
)

const (
	tencentHost    = "soe.tencentcloudapi.com"
	tencentService = "soe"
	tencentAction  = "TransmitOralProcessWithInit"
	tencentVersion = "2018-07-24"
)

// TencentAssessor scores speech against the Tencent SOE API using the
// TC3-HMAC-SHA256 request signing scheme. The streaming protocol is collapsed
// into a single round trip (SeqId=1, IsEnd=1), and audio is resampled to
// 16kHz before signing because the body participates in the signature.
type TencentAssessor struct {
	client *resty.Client
	now    func() time.Time
}

func NewTencentAssessor() *TencentAssessor {
	return &TencentAssessor{
		client: resty.New().SetTimeout(requestTimeout),
		now:    time.Now,
	}
}

func (t *TencentAssessor) Evaluate(req *EvalRequest, provider *model.AssessmentProvider) (*EvalResult, error) {
	secretID := ResolveCredential(provider.Config, "secret_id", provider.APIKeyEnv, "TENCENT_SECRET_ID")
	secretKey := ResolveCredential(provider.Config, "secret_key", provider.APISecretEnv, "TENCENT_SECRET_KEY")
	if secretID == "" || secretKey == "" {
		return nil, NewAssessmentError(ErrAuthFailed, "tencent credentials are not configured", "")
	}

	wav16k, err := audio.Resample16k(req.Audio)
	if err != nil {
		return nil, NewAssessmentError(ErrInvalidRequest, "audio could not be resampled to 16kHz: "+err.Error(), "")
	}

	serverType := 0 // english
	if strings.HasPrefix(req.Language, "zh") {
		serverType = 1
	}

	payload, _ := json.Marshal(map[string]any{
		"SessionId":       uuid.NewString(),
		"RefText":         req.RefText,
		"WorkMode":        1, // whole recording in one slice
		"EvalMode":        1, // sentence
		"ScoreCoeff":      1.0,
		"ServerType":      serverType,
		"VoiceFileType":   3, // wav
		"VoiceEncodeType": 1, // pcm
		"SeqId":           1,
		"IsEnd":           1,
		"UserVoiceData":   base64.StdEncoding.EncodeToString(wav16k),
	})

	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = "https://" + tencentHost
	} else if !strings.HasPrefix(endpoint, "http") {
		endpoint = "https://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return nil, NewAssessmentError(ErrInvalidRequest, "tencent endpoint is malformed", "")
	}

	ts := t.now().Unix()
	authorization := tc3Authorization(secretID, secretKey, parsed.Host, payload, ts)

	resp, err := t.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("X-TC-Action", tencentAction).
		SetHeader("X-TC-Version", tencentVersion).
		SetHeader("X-TC-Timestamp", strconv.FormatInt(ts, 10)).
		SetHeader("X-TC-Region", provider.Region).
		SetHeader("Authorization", authorization).
		SetBody(payload).
		Post(endpoint)
	if err != nil {
		return nil, transportError("tencent", err)
	}

	raw := resp.String()
	if resp.StatusCode() != http.StatusOK {
		return nil, NewAssessmentError(
			KindFromHTTPStatus(resp.StatusCode()),
			fmt.Sprintf("tencent soe returned HTTP %d", resp.StatusCode()),
			raw,
		)
	}
	if code := gjson.Get(raw, "Response.Error.Code").String(); code != "" {
		return nil, NewAssessmentError(
			tencentErrorKind(code),
			fmt.Sprintf("tencent soe error %s: %s", code, gjson.Get(raw, "Response.Error.Message").String()),
			raw,
		)
	}

	r := gjson.Get(raw, "Response")
	result := &EvalResult{
		OverallScore:       r.Get("SuggestedScore").Float(),
		PronunciationScore: r.Get("PronAccuracy").Float(),
		AccuracyScore:      r.Get("PronAccuracy").Float(),
		FluencyScore:       r.Get("PronFluency").Float() * 100, // vendor scale is 0-1
		CompletenessScore:  r.Get("PronCompletion").Float() * 100,
		RawResponse:        raw,
	}

	r.Get("Words").ForEach(func(_, w gjson.Result) bool {
		ws := WordScore{
			Word:          w.Get("Word").String(),
			AccuracyScore: w.Get("PronAccuracy").Float(),
			FluencyScore:  w.Get("PronFluency").Float() * 100,
			ErrorType:     tencentMatchTag(w.Get("MatchTag").Int()),
		}
		if ws.AccuracyScore < phonemeDetailThreshold {
			w.Get("PhoneInfos").ForEach(func(_, p gjson.Result) bool {
				score := p.Get("PronAccuracy").Float()
				ps := PhonemeScore{
					Phoneme:       p.Get("Phone").String(),
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

// tc3Authorization builds the TC3-HMAC-SHA256 Authorization header: canonical
// request -> date-scoped string to sign -> three-step HMAC key derivation.
func tc3Authorization(secretID, secretKey, host string, payload []byte, ts int64) string {
	date := time.Unix(ts, 0).UTC().Format("2006-01-02")

	canonicalHeaders := "content-type:application/json\nhost:" + host + "\n"
	signedHeaders := "content-type;host"
	canonicalRequest := strings.Join([]string{
		http.MethodPost,
		"/",
		"",
		canonicalHeaders,
		signedHeaders,
		sha256hex(payload),
	}, "\n")

	scope := date + "/" + tencentService + "/tc3_request"
	stringToSign := strings.Join([]string{
		"TC3-HMAC-SHA256",
		strconv.FormatInt(ts, 10),
		scope,
		sha256hex([]byte(canonicalRequest)),
	}, "\n")

	dateKey := hmacSHA256([]byte("TC3"+secretKey), date)
	serviceKey := hmacSHA256(dateKey, tencentService)
	signingKey := hmacSHA256(serviceKey, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	return fmt.Sprintf("TC3-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		secretID, scope, signedHeaders, signature)
}

func sha256hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, msg string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(msg))
	return h.Sum(nil)
}

func tencentErrorKind(code string) ErrorKind {
	switch {
	case strings.HasPrefix(code, "AuthFailure") || code == "UnauthorizedOperation":
		return ErrAuthFailed
	case strings.HasPrefix(code, "ResourceUnavailable") || strings.Contains(code, "Arrears"):
		return ErrInsufficientBalance
	case strings.HasPrefix(code, "RequestLimitExceeded") || strings.HasPrefix(code, "ResourceInsufficient") || strings.HasPrefix(code, "InternalError"):
		return ErrServiceUnavailable
	case strings.Contains(code, "Timeout"):
		return ErrTimeout
	case strings.HasPrefix(code, "InvalidParameter") || strings.HasPrefix(code, "MissingParameter"):
		return ErrInvalidRequest
	default:
		return ErrUnknown
	}
}

func tencentMatchTag(tag int64) string {
	switch tag {
	case 1:
		return "extra"
	case 2:
		return "missing"
	case 3:
		return "replaced"
	default:
		return ""
	}
}
