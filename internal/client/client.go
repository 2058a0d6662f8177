// Package client provides an HTTP client for the speech API, used by the
// command-line tool and by other services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/f5-tts-api/internal/core"
)

// API paths.
const (
	apiSpeech = "/v1/audio/speech"
	apiHealth = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
)

// ErrEmptyAudio is returned when the service answers 200 with no audio data.
var ErrEmptyAudio = errors.New("received empty audio data")

// Client is an HTTP client for the speech API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// apiError is the structured error body returned by the service.
type apiError struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

// New creates a client for the service at baseURL, including protocol and
// port.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Speech synthesizes one request and returns the audio bytes together with
// the response content type.
func (c *Client) Speech(ctx context.Context, req core.SpeechRequest) ([]byte, string, error) {
	err := req.Validate()
	if err != nil {
		return nil, "", err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	format, _ := core.ParseFormat(req.OutFormat)

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSpeech,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, format.ContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf(
			"failed to send request to speech service at %s: %w",
			c.baseURL,
			err,
		)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", c.parseErrorResponse(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, "", ErrEmptyAudio
	}

	return audioData, resp.Header.Get(headerContentType), nil
}

// Health verifies that the service is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+apiHealth,
		http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes the structured error body, falling back to the
// raw body when the service answered with something else.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var parsed apiError

	err := json.NewDecoder(resp.Body).Decode(&parsed)
	if err == nil && parsed.Detail != "" {
		return fmt.Errorf(
			"speech service error (%s): %s (code: %s)",
			resp.Status,
			parsed.Detail,
			parsed.ErrorCode,
		)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"speech service returned non-OK status: %s, body: %s",
		resp.Status,
		string(body),
	)
}
