// services/transcriber.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// maxRecordingBytes bounds a 60 second voicemail download with headroom
const maxRecordingBytes = 10 << 20

type audioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Transcriber turns a recording URL into text
type Transcriber interface {
	Transcribe(ctx context.Context, recordingURL string) (string, error)
}

// WhisperTranscriber downloads a Twilio recording and sends it to Whisper
type WhisperTranscriber struct {
	client     audioClient
	httpClient *http.Client
	accountSID string
	authToken  string
}

func NewWhisperTranscriber(client audioClient, accountSID, authToken string) *WhisperTranscriber {
	return &WhisperTranscriber{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		accountSID: accountSID,
		authToken:  authToken,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, recordingURL string) (string, error) {
	if recordingURL == "" {
		return "", errors.New("no recording URL provided for transcription")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return "", fmt.Errorf("build recording request: %w", err)
	}
	if t.accountSID != "" {
		req.SetBasicAuth(t.accountSID, t.authToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download recording: status %d", resp.StatusCode)
	}

	out, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "voicemail.mp3",
		Reader:   io.LimitReader(resp.Body, maxRecordingBytes),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe recording: %w", err)
	}
	return out.Text, nil
}
