// Package transcribe provides a Whisper API client used to produce reference
// text when a request carries reference audio without a transcript.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// API defaults.
const (
	defaultBaseURL = "https://api.openai.com/v1/audio/transcriptions"
	clientTimeout  = 60 * time.Second
)

// HTTP headers and form fields.
const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	formFieldFile       = "file"
	formFieldModel      = "model"
	formFieldLanguage   = "language"
)

// Environment variables.
const envOpenAIAPIKey = "OPENAI_API_KEY"

// ErrAPIKeyNotSet is returned when transcription is enabled without a key.
var ErrAPIKeyNotSet = errors.New("OPENAI_API_KEY environment variable not set")

// Client calls the Whisper transcription API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	language   string
}

// response is the JSON payload of a successful transcription.
type response struct {
	Text string `json:"text"`
}

// NewClient creates a Whisper client reading the API key from the
// environment.
func NewClient(model, language string) (*Client, error) {
	apiKey := os.Getenv(envOpenAIAPIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return &Client{
		httpClient: &http.Client{Timeout: clientTimeout},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      model,
		language:   language,
	}, nil
}

// NewClientWithBaseURL creates a client against a custom endpoint. Used by
// tests and OpenAI-compatible local servers.
func NewClientWithBaseURL(baseURL, apiKey, model, language string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: clientTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		language:   language,
	}
}

// TranscribeFile transcribes an audio file and returns the text.
func (c *Client) TranscribeFile(ctx context.Context, audioPath string) (string, error) {
	body, contentType, err := c.buildMultipartBody(audioPath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}

	req.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	req.Header.Set(headerContentType, contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call transcription API: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf(
			"transcription API returned status %d: %s",
			resp.StatusCode,
			string(raw),
		)
	}

	var parsed response

	err = json.NewDecoder(resp.Body).Decode(&parsed)
	if err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return parsed.Text, nil
}

func (c *Client) buildMultipartBody(audioPath string) (*bytes.Buffer, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(formFieldFile, filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to copy file data: %w", err)
	}

	err = writer.WriteField(formFieldModel, c.model)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write model field: %w", err)
	}

	if c.language != "" {
		err = writer.WriteField(formFieldLanguage, c.language)
		if err != nil {
			return nil, "", fmt.Errorf("failed to write language field: %w", err)
		}
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
