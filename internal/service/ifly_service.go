package service

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/tidwall/gjson"
)

const iflyDefaultEndpoint = "https://api.xfyun.cn/v1/service/v1/ise"

// IflyAssessor scores speech against the iFlytek speech evaluation API. The
// evaluation parameters travel as a base64 JSON blob, authenticated by an MD5
// checksum over secret+time+blob; the body is the raw PCM stripped of its
// container.
type IflyAssessor struct {
	client *resty.Client
	now    func() time.Time
}

func NewIflyAssessor() *IflyAssessor {
	return &IflyAssessor{
		client: resty.New().SetTimeout(requestTimeout),
		now:    time.Now,
	}
}

func (f *IflyAssessor) Evaluate(req *EvalRequest, provider *model.AssessmentProvider) (*EvalResult, error) {
	appID := ResolveCredential(provider.Config, "app_id", provider.AppIDEnv, "IFLY_APP_ID")
	apiSecret := ResolveCredential(provider.Config, "api_secret", provider.APISecretEnv, "IFLY_API_SECRET")
	if appID == "" || apiSecret == "" {
		return nil, NewAssessmentError(ErrAuthFailed, "ifly credentials are not configured", "")
	}

	paramJSON, _ := json.Marshal(map[string]string{
		"aue":          "raw",
		"language":     iflyLanguage(req.Language),
		"category":     "read_sentence",
		"result_level": "complete",
		"text":         req.RefText,
	})
	param := base64.StdEncoding.EncodeToString(paramJSON)
	curTime := strconv.FormatInt(f.now().Unix(), 10)

	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = iflyDefaultEndpoint
	}

	resp, err := f.client.R().
		SetHeader("X-Appid", appID).
		SetHeader("X-CurTime", curTime).
		SetHeader("X-Param", param).
		SetHeader("X-CheckSum", iflyChecksum(apiSecret, curTime, param)).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(req.Info.Data).
		Post(endpoint)
	if err != nil {
		return nil, transportError("ifly", err)
	}

	raw := resp.String()
	if resp.StatusCode() != http.StatusOK {
		return nil, NewAssessmentError(
			KindFromHTTPStatus(resp.StatusCode()),
			fmt.Sprintf("ifly ise returned HTTP %d", resp.StatusCode()),
			raw,
		)
	}
	if code := gjson.Get(raw, "code").String(); code != "0" {
		return nil, NewAssessmentError(
			iflyErrorKind(code),
			fmt.Sprintf("ifly ise error %s: %s", code, gjson.Get(raw, "desc").String()),
			raw,
		)
	}

	// ise scores are on a five-point scale.
	const scale = 20.0
	data := gjson.Get(raw, "data")
	overall := data.Get("total_score").Float() * scale
	result := &EvalResult{
		OverallScore:       overall,
		PronunciationScore: overall,
		AccuracyScore:      data.Get("accuracy_score").Float() * scale,
		FluencyScore:       data.Get("fluency_score").Float() * scale,
		CompletenessScore:  data.Get("integrity_score").Float() * scale,
		RawResponse:        raw,
	}

	data.Get("words").ForEach(func(_, w gjson.Result) bool {
		ws := WordScore{
			Word:          w.Get("content").String(),
			AccuracyScore: w.Get("total_score").Float() * scale,
			ErrorType:     iflyDPMessage(w.Get("dp_message").Int()),
		}
		if ws.AccuracyScore < phonemeDetailThreshold {
			w.Get("phones").ForEach(func(_, p gjson.Result) bool {
				score := p.Get("score").Float() * scale
				ps := PhonemeScore{
					Phoneme:       p.Get("content").String(),
					AccuracyScore: score,
					IsCorrect:     score >= phonemeCorrectScore,
					ErrorType:     iflyDPMessage(p.Get("dp_message").Int()),
				}
				if ps.ErrorType == "" && !ps.IsCorrect {
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

// iflyChecksum authenticates a request: MD5 over the concatenation of the api
// secret, the unix time and the base64 parameter blob.
func iflyChecksum(apiSecret, curTime, param string) string {
	sum := md5.Sum([]byte(apiSecret + curTime + param))
	return hex.EncodeToString(sum[:])
}

func iflyLanguage(tag string) string {
	if strings.HasPrefix(tag, "zh") {
		return "zh_cn"
	}
	return "en_us"
}

func iflyErrorKind(code string) ErrorKind {
	switch {
	case code == "10105" || code == "10106" || code == "10107":
		return ErrAuthFailed
	case code == "10114":
		return ErrTimeout
	case code == "11200" || code == "11201":
		return ErrInsufficientBalance
	case strings.HasPrefix(code, "101"):
		return ErrInvalidRequest
	case strings.HasPrefix(code, "107"):
		return ErrServiceUnavailable
	default:
		return ErrUnknown
	}
}

func iflyDPMessage(dp int64) string {
	switch dp {
	case 16:
		return "missing"
	case 32, 64:
		return "extra"
	case 128:
		return "replaced"
	default:
		return ""
	}
}
