// main package for the f5-tts-api service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/f5-tts-api/internal/accent"
	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/f5"
	"github.com/book-expert/f5-tts-api/internal/metrics"
	"github.com/book-expert/f5-tts-api/internal/objectstore"
	"github.com/book-expert/f5-tts-api/internal/pipeline"
	"github.com/book-expert/f5-tts-api/internal/refmedia"
	"github.com/book-expert/f5-tts-api/internal/server"
	"github.com/book-expert/f5-tts-api/internal/text"
	"github.com/book-expert/f5-tts-api/internal/transcribe"
	"github.com/book-expert/f5-tts-api/internal/ttsutils"
	"github.com/book-expert/f5-tts-api/internal/worker"
)

const metricsNamespace = "f5_tts"

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "f5-tts-api.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	return runService(cfg, finalLog)
}

func runService(cfg *config.Config, log *logger.Logger) error {
	err := prepareEnvironment(cfg, log)
	if err != nil {
		return err
	}

	synthesizer := f5.New(cfg.F5, cfg.Paths.OutputDir, ttsutils.HuggingFaceHubDir(), log)

	err = synthesizer.CheckModel()
	if err != nil {
		return fmt.Errorf("model check failed: %w", err)
	}

	log.Info("Model weights resolved for %s", cfg.F5.ModelRepo)

	collector := metrics.NewCollector(metricsNamespace)

	pipe := pipeline.New(pipeline.Deps{
		Normalizer:    text.NewNormalizer(),
		Accentuator:   accent.New(cfg.Accent, log),
		Resolver:      buildResolver(cfg, log),
		Synthesizer:   synthesizer,
		Transcoder:    pipeline.NewTranscoderFromConfig(cfg.FFmpeg, log),
		Collector:     collector,
		Log:           log,
		AccentOnError: cfg.Accent.OnError,
	})

	httpServer := server.New(cfg.Server, cfg.ListenAddr(), pipe, collector, log)

	return serve(cfg, httpServer, pipe, log)
}

// prepareEnvironment creates the staging directories and verifies the
// external binaries the pipeline shells out to.
func prepareEnvironment(cfg *config.Config, log *logger.Logger) error {
	for _, dir := range []string{cfg.Paths.InputDir, cfg.Paths.OutputDir, cfg.Paths.VoicesDir} {
		err := ttsutils.EnsureDir(dir)
		if err != nil {
			return fmt.Errorf("failed to create staging directory: %w", err)
		}
	}

	_, err := exec.LookPath(cfg.F5.Binary)
	if err != nil {
		return fmt.Errorf("inference binary %q not found: %w", cfg.F5.Binary, err)
	}

	_, err = exec.LookPath(cfg.FFmpeg.Binary)
	if err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", cfg.FFmpeg.Binary, err)
	}

	if cfg.Accent.Command != "" {
		_, err = exec.LookPath(cfg.Accent.Command)
		if err != nil {
			if cfg.Accent.OnError == config.AccentFail {
				return fmt.Errorf(
					"accentizer %q not found: %w",
					cfg.Accent.Command,
					err,
				)
			}

			log.Warn(
				"Accentizer %q not found, requests will pass through unaccented: %v",
				cfg.Accent.Command,
				err,
			)
		}
	}

	return nil
}

// buildResolver wires the reference media resolver, with Whisper
// transcription when enabled.
func buildResolver(cfg *config.Config, log *logger.Logger) *refmedia.Resolver {
	var transcriber *transcribe.Client

	if cfg.Whisper.Enabled {
		client, err := transcribe.NewClient(cfg.Whisper.Model, cfg.Whisper.Language)
		if err != nil {
			log.Warn("Whisper transcription disabled: %v", err)
		} else {
			transcriber = client
		}
	}

	if transcriber == nil {
		return refmedia.NewResolver(cfg.Fetch, cfg.Paths, text.NewNormalizer(), nil, log)
	}

	return refmedia.NewResolver(cfg.Fetch, cfg.Paths, text.NewNormalizer(), transcriber, log)
}

// serve runs the HTTP server and the optional NATS worker until a signal
// arrives.
func serve(
	cfg *config.Config,
	httpServer *server.Server,
	pipe *pipeline.Pipeline,
	log *logger.Logger,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	if cfg.NATS.Enabled {
		natsWorker, natsCleanup, err := buildWorker(cfg, pipe, log)
		if err != nil {
			return err
		}

		defer natsCleanup()

		go func() {
			errChan <- natsWorker.Run(ctx)
		}()

		log.System("NATS worker listening on subject: %s", cfg.NATS.SpeechJobsSubject)
	}

	log.System("Service ready on %s", cfg.ListenAddr())

	select {
	case <-ctx.Done():
		log.System("Shutdown signal received")
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second,
	)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// buildWorker connects to NATS and wires the job intake.
func buildWorker(
	cfg *config.Config,
	pipe *pipeline.Pipeline,
	log *logger.Logger,
) (*worker.NatsWorker, func(), error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create object store: %w", err)
	}

	natsWorker := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.SpeechJobsSubject,
		store,
		pipe,
		log,
	)

	return natsWorker, natsConnection.Close, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
