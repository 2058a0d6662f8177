// speak is a command-line client for the speech API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/f5-tts-api/internal/client"
	"github.com/book-expert/f5-tts-api/internal/core"
)

// Defaults.
const (
	defaultURL          = "http://localhost:4123"
	defaultWorkers      = 2
	requestTimeout      = 15 * time.Minute
	healthCheckTimeout  = 10 * time.Second
	logFileName         = "speak.log"
	defaultOutputPrefix = "output"
)

// Static errors.
var (
	errEitherTextOrChunks = errors.New("either --text or --chunks must be provided")
	errCannotSpecifyBoth  = errors.New("cannot specify both --text and --chunks")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text     string
	chunks   string
	output   string
	format   string
	refAudio string
	refText  string
	url      string
	workers  int
	health   bool
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	appLogger, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		_ = appLogger.Close()
	}()

	apiClient := client.New(flags.url, requestTimeout)

	if flags.health {
		return handleHealthCheck(apiClient)
	}

	return handleExecution(apiClient, appLogger, flags)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, "text", "", "Text to convert to speech")
	flag.StringVar(&flags.chunks, "chunks", "", "JSON file containing text chunks to process")
	flag.StringVar(&flags.output, "output", "", "Output file path, or directory for --chunks")
	flag.StringVar(&flags.format, "format", "wav", "Output format: wav or mp3")
	flag.StringVar(&flags.refAudio, "ref-audio", "", "Reference audio path or URL for voice cloning")
	flag.StringVar(&flags.refText, "ref-text", "", "Reference text or URL matching the reference audio")
	flag.StringVar(&flags.url, "url", defaultURL, "Base URL of the speech service")
	flag.IntVar(&flags.workers, "workers", defaultWorkers, "Parallel workers for --chunks")
	flag.BoolVar(&flags.health, "health", false, "Check service health and exit")
	flag.Parse()

	return flags
}

func handleHealthCheck(apiClient *client.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	err := apiClient.Health(ctx)
	if err != nil {
		fmt.Printf("Speech service is not healthy: %v\n", err)

		return err
	}

	fmt.Println("Speech service is healthy")

	return nil
}

func handleExecution(apiClient *client.Client, appLogger *logger.Logger, flags appFlags) error {
	if flags.text == "" && flags.chunks == "" {
		flag.Usage()

		return errEitherTextOrChunks
	}

	if flags.text != "" && flags.chunks != "" {
		return errCannotSpecifyBoth
	}

	engine := client.NewEngine(apiClient, flags.workers, appLogger)

	base := core.SpeechRequest{
		Input:             "",
		OutFormat:         flags.format,
		RefAudio:          flags.refAudio,
		RefText:           flags.refText,
		VocoderName:       "",
		RemoveSilence:     nil,
		TargetRMS:         nil,
		Speed:             nil,
		CFGStrength:       nil,
		NFEStep:           nil,
		FixDuration:       nil,
		CrossFadeDuration: nil,
		SaveChunk:         nil,
	}

	ctx := context.Background()

	if flags.text != "" {
		return processSingleText(ctx, engine, base, flags)
	}

	return processChunks(ctx, engine, base, flags)
}

func processSingleText(
	ctx context.Context,
	engine *client.Engine,
	base core.SpeechRequest,
	flags appFlags,
) error {
	outputPath := flags.output
	if outputPath == "" {
		outputPath = defaultOutputPrefix + "." + flags.format
	}

	req := base
	req.Input = flags.text

	err := engine.ProcessSingleText(ctx, req, outputPath)
	if err != nil {
		return fmt.Errorf("failed to process text: %w", err)
	}

	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}

func processChunks(
	ctx context.Context,
	engine *client.Engine,
	base core.SpeechRequest,
	flags appFlags,
) error {
	outputDir := flags.output
	if outputDir == "" {
		outputDir = "."
	}

	err := engine.ProcessChunks(ctx, flags.chunks, outputDir, base)
	if err != nil {
		return fmt.Errorf("failed to process chunks: %w", err)
	}

	fmt.Printf("Generated audio files in: %s\n", filepath.Clean(outputDir))

	return nil
}
