package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/book-expert/logger"

	"github.com/book-expert/f5-tts-api/internal/core"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// outputFileFormat names batch outputs sequentially.
const outputFileFormat = "chunk_%04d.%s"

// Static errors for batch processing.
var (
	ErrChunksPathEmpty = errors.New("chunks path cannot be empty")
	ErrOutputDirEmpty  = errors.New("output directory cannot be empty")
	ErrOutputPathEmpty = errors.New("output path cannot be empty")
	ErrNoChunksFound   = errors.New("no chunks found")
)

// Engine drives batch synthesis against the speech service. Chunks run in
// parallel through a bounded worker pool; the service itself serializes
// inference, so workers mainly overlap network and file I/O.
type Engine struct {
	client  *Client
	log     *logger.Logger
	workers int
}

// NewEngine creates a batch engine with the given parallelism.
func NewEngine(apiClient *Client, workers int, log *logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}

	return &Engine{
		client:  apiClient,
		log:     log,
		workers: workers,
	}
}

// ProcessSingleText synthesizes one request and writes the audio to
// outputPath.
func (e *Engine) ProcessSingleText(
	ctx context.Context,
	req core.SpeechRequest,
	outputPath string,
) error {
	if outputPath == "" {
		return ErrOutputPathEmpty
	}

	err := os.MkdirAll(filepath.Dir(outputPath), dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	audioData, _, err := e.client.Speech(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to generate speech: %w", err)
	}

	err = os.WriteFile(outputPath, audioData, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	e.log.Info("Generated audio: %s (%d bytes)", outputPath, len(audioData))

	return nil
}

// ProcessChunks reads a JSON array of text chunks and synthesizes each one
// into outputDir. The base request supplies the shared knobs; only the input
// text varies per chunk. Failed chunks are reported but do not stop the rest.
func (e *Engine) ProcessChunks(
	ctx context.Context,
	chunksPath, outputDir string,
	base core.SpeechRequest,
) error {
	if chunksPath == "" {
		return ErrChunksPathEmpty
	}

	if outputDir == "" {
		return ErrOutputDirEmpty
	}

	chunks, err := readChunksFile(chunksPath)
	if err != nil {
		return err
	}

	err = os.MkdirAll(outputDir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = e.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("speech service health check failed: %w", err)
	}

	e.log.Info("Speech service is healthy, processing %d chunks", len(chunks))

	format, err := core.ParseFormat(base.OutFormat)
	if err != nil {
		return err
	}

	return e.processChunksParallel(ctx, chunks, outputDir, base, format)
}

func (e *Engine) processChunksParallel(
	ctx context.Context,
	chunks []string,
	outputDir string,
	base core.SpeechRequest,
	format core.Format,
) error {
	var (
		waitGroup sync.WaitGroup
		mutex     sync.Mutex
		lastError error
	)

	workerPool := make(chan struct{}, e.workers)

	for chunkIndex, chunk := range chunks {
		waitGroup.Add(1)

		go func(index int, text string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			outputPath := filepath.Join(
				outputDir,
				fmt.Sprintf(outputFileFormat, index+1, string(format)),
			)

			req := base
			req.Input = text

			err := e.ProcessSingleText(ctx, req, outputPath)
			if err != nil {
				mutex.Lock()

				lastError = fmt.Errorf("chunk %d failed: %w", index+1, err)

				mutex.Unlock()
				e.log.Error("Failed to process chunk %d: %v", index+1, err)

				return
			}

			e.log.Info("Processed chunk %d/%d", index+1, len(chunks))
		}(chunkIndex, chunk)
	}

	waitGroup.Wait()
	close(workerPool)

	return lastError
}

// readChunksFile parses a JSON array of text chunks.
func readChunksFile(chunksPath string) ([]string, error) {
	data, err := os.ReadFile(chunksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks file: %w", err)
	}

	var chunks []string

	err = json.Unmarshal(data, &chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunks JSON: %w", err)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoChunksFound, chunksPath)
	}

	return chunks, nil
}
