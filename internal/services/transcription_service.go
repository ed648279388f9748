package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTranscribeURL = "https://api.deepgram.com/v1/listen?model=nova-2&smart_format=true"

// Transcript is the text recognized from one voice message.
type Transcript struct {
	Text       string
	Confidence float64
}

// TranscriptionService turns voice notes into prompt text. Chat voice notes
// arrive as OGG/Opus; the recognizer wants mono 16 kHz 16-bit PCM WAV.
type TranscriptionService interface {
	ConvertOggToWav(ctx context.Context, ogg []byte) ([]byte, error)
	Transcribe(ctx context.Context, wav []byte) (*Transcript, error)
}

type transcriptionService struct {
	apiKey string
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewTranscriptionService(apiKey string, logger *zap.Logger) TranscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transcriptionService{
		apiKey: apiKey,
		url:    defaultTranscribeURL,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (s *transcriptionService) ConvertOggToWav(ctx context.Context, ogg []byte) ([]byte, error) {
	if len(ogg) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrInvalidInput)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", "pipe:0",
		"-ar", "16000",
		"-ac", "1",
		"-sample_fmt", "s16",
		"-f", "wav",
		"pipe:1")
	cmd.Stdin = bytes.NewReader(ogg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		s.logger.Error("ffmpeg conversion failed",
			zap.Error(err),
			zap.String("stderr", truncateForLogging(errBuf.String())))
		return nil, fmt.Errorf("convert audio: %w", err)
	}
	return out.Bytes(), nil
}

func (s *transcriptionService) Transcribe(ctx context.Context, wav []byte) (*Transcript, error) {
	if len(wav) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrInvalidInput)
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: transcription api key not configured", ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(wav))
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("transcription api error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncateForLogging(string(body))))
		return nil, fmt.Errorf("transcription api returned %d", resp.StatusCode)
	}

	text, confidence, err := parseTranscription(body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTranscription
	}

	s.logger.Info("voice transcribed",
		zap.Int("chars", len(text)),
		zap.Float64("confidence", confidence))
	return &Transcript{Text: strings.TrimSpace(text), Confidence: confidence}, nil
}

func parseTranscription(body []byte) (string, float64, error) {
	var payload struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string  `json:"transcript"`
					Confidence float64 `json:"confidence"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("decode transcription response: %w", err)
	}
	if len(payload.Results.Channels) == 0 || len(payload.Results.Channels[0].Alternatives) == 0 {
		return "", 0, nil
	}
	alt := payload.Results.Channels[0].Alternatives[0]
	return alt.Transcript, alt.Confidence, nil
}

func truncateForLogging(s string) string {
	const max = 300
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
