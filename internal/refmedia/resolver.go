// Package refmedia stages reference audio and text for voice cloning: env
// pins, traversal-filtered local paths, and bounded URL downloads.
package refmedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
	"github.com/book-expert/f5-tts-api/internal/text"
	"github.com/book-expert/f5-tts-api/internal/ttsutils"
)

// URL schemes accepted for remote references.
const (
	schemeHTTP  = "http://"
	schemeHTTPS = "https://"
)

// Staged download naming.
const (
	refAudioPrefix  = "ref_"
	refTextPrefix   = "ref_text_"
	defaultAudioExt = ".wav"
	defaultTextExt  = ".txt"
	filePermissions = 0o600
)

// ResolvedRefs is the staging result: a local audio path (or empty) and the
// cleaned reference text (or empty).
type ResolvedRefs struct {
	AudioPath string
	Text      string
}

// Resolver stages reference media for a single request.
type Resolver struct {
	cfg         config.FetchConfig
	paths       config.PathsConfig
	normalizer  *text.Normalizer
	transcriber core.Transcriber
	httpClient  *http.Client
	log         *logger.Logger
}

// NewResolver creates a resolver. transcriber may be nil; when present it
// fills in missing reference text from the reference audio.
func NewResolver(
	cfg config.FetchConfig,
	paths config.PathsConfig,
	normalizer *text.Normalizer,
	transcriber core.Transcriber,
	log *logger.Logger,
) *Resolver {
	return &Resolver{
		cfg:         cfg,
		paths:       paths,
		normalizer:  normalizer,
		transcriber: transcriber,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		log: log,
	}
}

// Resolve stages the reference audio and text of a request. The returned
// cleanup removes any files downloaded for this request and is safe to call
// unconditionally.
func (r *Resolver) Resolve(ctx context.Context, refAudio, refText string) (ResolvedRefs, func(), error) {
	var staged []string

	cleanup := func() {
		for _, path := range staged {
			removeErr := os.Remove(path)
			if removeErr != nil {
				r.log.Warn("Failed to remove staged file '%s': %v", path, removeErr)
			}
		}
	}

	audioPath, downloaded, err := r.resolveAudio(ctx, refAudio)
	if err != nil {
		return ResolvedRefs{}, cleanup, err
	}

	if downloaded != "" {
		staged = append(staged, downloaded)
	}

	resolvedText, downloadedText, err := r.resolveText(ctx, refText)
	if err != nil {
		return ResolvedRefs{}, cleanup, err
	}

	if downloadedText != "" {
		staged = append(staged, downloadedText)
	}

	if resolvedText == "" && audioPath != "" && r.transcriber != nil {
		resolvedText, err = r.transcribe(ctx, audioPath)
		if err != nil {
			return ResolvedRefs{}, cleanup, err
		}
	}

	return ResolvedRefs{AudioPath: audioPath, Text: resolvedText}, cleanup, nil
}

// resolveAudio returns the local audio path plus the staged download path
// (empty when nothing was downloaded).
func (r *Resolver) resolveAudio(ctx context.Context, refAudio string) (string, string, error) {
	// A deployment-pinned reference wins over the request.
	if r.cfg.RefAudioPath != "" {
		_, statErr := os.Stat(r.cfg.RefAudioPath)
		if statErr == nil {
			return r.cfg.RefAudioPath, "", nil
		}
	}

	if refAudio == "" {
		return "", "", nil
	}

	if isURL(refAudio) {
		ext := ttsutils.ExtensionOrDefault(refAudio, defaultAudioExt)
		name := refAudioPrefix + uuid.NewString() + ttsutils.SanitizeFilename(ext)
		localPath := filepath.Join(r.paths.InputDir, name)

		err := r.downloadToFile(ctx, refAudio, localPath)
		if err != nil {
			return "", "", err
		}

		return localPath, localPath, nil
	}

	localPath, err := r.validateLocalAudioPath(refAudio)
	if err != nil {
		return "", "", err
	}

	return localPath, "", nil
}

// resolveText returns the cleaned reference text plus the staged download
// path, if any.
func (r *Resolver) resolveText(ctx context.Context, refText string) (string, string, error) {
	if r.cfg.RefTextPath != "" {
		data, readErr := os.ReadFile(r.cfg.RefTextPath)
		if readErr == nil {
			return r.normalizer.NormalizeRefText(string(data)), "", nil
		}
	}

	if refText == "" {
		return "", "", nil
	}

	if isURL(refText) {
		ext := ttsutils.ExtensionOrDefault(refText, defaultTextExt)
		name := refTextPrefix + uuid.NewString() + ttsutils.SanitizeFilename(ext)
		localPath := filepath.Join(r.paths.InputDir, name)

		err := r.downloadToFile(ctx, refText, localPath)
		if err != nil {
			return "", "", err
		}

		data, readErr := os.ReadFile(localPath)
		if readErr != nil {
			return "", "", fmt.Errorf("failed to read downloaded ref_text: %w", readErr)
		}

		return r.normalizer.NormalizeRefText(string(data)), localPath, nil
	}

	return r.normalizer.NormalizeRefText(refText), "", nil
}

func (r *Resolver) transcribe(ctx context.Context, audioPath string) (string, error) {
	transcript, err := r.transcriber.TranscribeFile(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe reference audio: %w", err)
	}

	return r.normalizer.NormalizeRefText(transcript), nil
}

// validateLocalAudioPath filters request-supplied paths: audio extension
// only, no traversal, and the file must live inside the voices or input
// directory.
func (r *Resolver) validateLocalAudioPath(refAudio string) (string, error) {
	if strings.Contains(refAudio, "..") {
		return "", fmt.Errorf("%w: %s", core.ErrUnsafePath, refAudio)
	}

	if !ttsutils.IsValidAudioFile(refAudio) {
		return "", fmt.Errorf("%w: not an audio file: %s", core.ErrUnsafePath, refAudio)
	}

	localPath := refAudio
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(r.paths.VoicesDir, localPath)
	}

	localPath = filepath.Clean(localPath)

	if !isWithin(r.paths.VoicesDir, localPath) && !isWithin(r.paths.InputDir, localPath) {
		return "", fmt.Errorf("%w: outside staging directories: %s", core.ErrUnsafePath, refAudio)
	}

	_, statErr := os.Stat(localPath)
	if statErr != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrUnsafePath, refAudio, statErr)
	}

	return localPath, nil
}

// downloadToFile fetches a URL into a staged file, enforcing the configured
// size cap. Any failure maps to core.ErrRemoteFetch.
func (r *Resolver) downloadToFile(ctx context.Context, url, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", core.ErrRemoteFetch, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrRemoteFetch, url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s returned status %s", core.ErrRemoteFetch, url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.cfg.MaxBytes+1))
	if err != nil {
		return fmt.Errorf("%w: failed to read body of %s: %w", core.ErrRemoteFetch, url, err)
	}

	if int64(len(data)) > r.cfg.MaxBytes {
		return fmt.Errorf("%w: %s exceeds %d byte limit", core.ErrRemoteFetch, url, r.cfg.MaxBytes)
	}

	err = os.WriteFile(localPath, data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to stage download: %w", err)
	}

	return nil
}

func isURL(value string) bool {
	return strings.HasPrefix(value, schemeHTTP) || strings.HasPrefix(value, schemeHTTPS)
}

// isWithin reports whether path is inside dir after cleaning.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
