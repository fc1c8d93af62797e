package service

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lexivoice/pronounce-api/internal/audio"
	"github.com/lexivoice/pronounce-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTC3AuthorizationKnownVector(t *testing.T) {
	auth := tc3Authorization("AKIDEXAMPLE", "examplekey", "soe.tencentcloudapi.com", []byte(`{"SeqId":1}`), 1700000000)
	assert.Equal(t,
		"TC3-HMAC-SHA256 Credential=AKIDEXAMPLE/2023-11-14/soe/tc3_request, "+
			"SignedHeaders=content-type;host, "+
			"Signature=f279dd33f6e260f522c6a93c77da6f314478b0188fadaa19ba5eed6c4786205c",
		auth)
}

func TestTC3AuthorizationVariesWithInputs(t *testing.T) {
	base := tc3Authorization("id", "key", "host", []byte("a"), 1700000000)
	assert.NotEqual(t, base, tc3Authorization("id", "other", "host", []byte("a"), 1700000000))
	assert.NotEqual(t, base, tc3Authorization("id", "key", "host", []byte("b"), 1700000000))
	// A new day derives a new signing key.
	assert.NotEqual(t, base, tc3Authorization("id", "key", "host", []byte("a"), 1700000000+86400))
}

const tencentSuccessBody = `{"Response": {
	"RequestId": "req-1",
	"SessionId": "sess-1",
	"SuggestedScore": 86.5,
	"PronAccuracy": 88.0,
	"PronFluency": 0.91,
	"PronCompletion": 1.0,
	"Words": [
		{"Word": "hello", "PronAccuracy": 82.0, "PronFluency": 0.9, "MatchTag": 0,
		 "PhoneInfos": [{"Phone": "HH", "PronAccuracy": 55.0}, {"Phone": "AH0", "PronAccuracy": 88.0}]},
		{"Word": "world", "PronAccuracy": 92.0, "PronFluency": 0.95, "MatchTag": 0,
		 "PhoneInfos": [{"Phone": "W", "PronAccuracy": 90.0}]}
	]
}}`

func TestTencentEvaluateSuccess(t *testing.T) {
	req := testEvalRequest(t) // 8kHz source, must arrive at the vendor as 16kHz

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TransmitOralProcessWithInit", r.Header.Get("X-TC-Action"))
		assert.Equal(t, "2018-07-24", r.Header.Get("X-TC-Version"))
		assert.Regexp(t, `^TC3-HMAC-SHA256 Credential=test-id/\d{4}-\d{2}-\d{2}/soe/tc3_request, SignedHeaders=content-type;host, Signature=[0-9a-f]{64}$`,
			r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		parsed := gjson.ParseBytes(body)
		assert.Equal(t, int64(1), parsed.Get("IsEnd").Int())
		assert.Equal(t, int64(1), parsed.Get("SeqId").Int())
		assert.Equal(t, "hello world", parsed.Get("RefText").String())
		assert.NotEmpty(t, parsed.Get("SessionId").String())

		voice, err := base64.StdEncoding.DecodeString(parsed.Get("UserVoiceData").String())
		require.NoError(t, err)
		info := audio.ParseWAV(voice)
		require.NotNil(t, info, "voice payload must be a WAV container")
		assert.Equal(t, audio.TargetSampleRate, info.SampleRate)
		assert.Equal(t, 1, info.Channels)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tencentSuccessBody))
	}))
	defer ts.Close()

	a := NewTencentAssessor()
	provider := &model.AssessmentProvider{
		Vendor:   model.VendorTencent,
		Endpoint: ts.URL,
		Region:   "ap-shanghai",
		Config:   `{"secret_id":"test-id","secret_key":"test-key"}`,
	}

	result, err := a.Evaluate(req, provider)
	require.NoError(t, err)
	assert.Equal(t, 86.5, result.OverallScore)
	assert.Equal(t, 88.0, result.AccuracyScore)
	assert.InDelta(t, 91.0, result.FluencyScore, 1e-9)
	assert.InDelta(t, 100.0, result.CompletenessScore, 1e-9)
	require.Len(t, result.Words, 2)
	require.Len(t, result.Words[0].Phonemes, 2)
	assert.Empty(t, result.Words[1].Phonemes)
}

func TestTencentEvaluateVendorError(t *testing.T) {
	req := testEvalRequest(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response": {"RequestId": "req-2", "Error": {"Code": "AuthFailure.SignatureFailure", "Message": "signature mismatch"}}}`))
	}))
	defer ts.Close()

	a := NewTencentAssessor()
	provider := &model.AssessmentProvider{
		Vendor:   model.VendorTencent,
		Endpoint: ts.URL,
		Config:   `{"secret_id":"id","secret_key":"key"}`,
	}

	_, err := a.Evaluate(req, provider)
	require.Error(t, err)
	ae := AsAssessmentError(err)
	assert.Equal(t, ErrAuthFailed, ae.Kind)
	assert.Contains(t, ae.Message, "signature mismatch")
	assert.NotEmpty(t, ae.Raw)
}

func TestTencentEvaluateTimeout(t *testing.T) {
	req := testEvalRequest(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	a := NewTencentAssessor()
	a.client.SetTimeout(50 * time.Millisecond)
	provider := &model.AssessmentProvider{
		Vendor:   model.VendorTencent,
		Endpoint: ts.URL,
		Config:   `{"secret_id":"id","secret_key":"key"}`,
	}

	_, err := a.Evaluate(req, provider)
	require.Error(t, err)
	assert.Equal(t, ErrTimeout, KindOf(err))
}

func TestTencentEvaluateMissingCredentials(t *testing.T) {
	t.Setenv("TENCENT_SECRET_ID", "")
	t.Setenv("TENCENT_SECRET_KEY", "")
	a := NewTencentAssessor()
	provider := &model.AssessmentProvider{Vendor: model.VendorTencent}

	_, err := a.Evaluate(testEvalRequest(t), provider)
	require.Error(t, err)
	assert.Equal(t, ErrAuthFailed, KindOf(err))
}
