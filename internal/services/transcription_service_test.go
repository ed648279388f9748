package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func transcribeResponse(text, confidence string) string {
	return `{"results":{"channels":[{"alternatives":[{"transcript":"` + text +
		`","confidence":` + confidence + `}]}]}}`
}

func testTranscriber(t *testing.T, handler http.HandlerFunc) TranscriptionService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &transcriptionService{
		apiKey: "test-key",
		url:    server.URL,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: zap.NewNop(),
	}
}

func TestTranscribeSuccess(t *testing.T) {
	var gotAuth, gotContentType string
	svc := testTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(transcribeResponse("add a readme", "0.97")))
	})

	out, err := svc.Transcribe(context.Background(), []byte("RIFFwav"))
	require.NoError(t, err)
	assert.Equal(t, "add a readme", out.Text)
	assert.InDelta(t, 0.97, out.Confidence, 1e-9)
	assert.Equal(t, "Token test-key", gotAuth)
	assert.Equal(t, "audio/wav", gotContentType)
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	svc := testTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(transcribeResponse("   ", "0")))
	})

	_, err := svc.Transcribe(context.Background(), []byte("RIFFwav"))
	assert.ErrorIs(t, err, ErrEmptyTranscription)
}

func TestTranscribeNoAlternatives(t *testing.T) {
	svc := testTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[]}}`))
	})

	_, err := svc.Transcribe(context.Background(), []byte("RIFFwav"))
	assert.ErrorIs(t, err, ErrEmptyTranscription)
}

func TestTranscribeAPIError(t *testing.T) {
	svc := testTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := svc.Transcribe(context.Background(), []byte("RIFFwav"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyTranscription)
}

func TestTranscribeRejectsEmptyPayload(t *testing.T) {
	svc := NewTranscriptionService("key", nil)
	_, err := svc.Transcribe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTranscribeRequiresKey(t *testing.T) {
	svc := NewTranscriptionService("", nil)
	_, err := svc.Transcribe(context.Background(), []byte("RIFFwav"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
