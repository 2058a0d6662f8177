package f5

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
)

// Output file naming.
const (
	outputFilePrefix = "out_"
	wavExtension     = ".wav"
)

// Synthesizer implements core.Synthesizer by calling the f5-tts_infer-cli
// binary with a snapshot-resolved checkpoint.
type Synthesizer struct {
	cfg       config.F5Config
	outputDir string
	hubDir    string
	log       *logger.Logger
}

// New creates a synthesizer. hubDir is the HuggingFace hub cache directory.
func New(cfg config.F5Config, outputDir, hubDir string, log *logger.Logger) *Synthesizer {
	return &Synthesizer{
		cfg:       cfg,
		outputDir: outputDir,
		hubDir:    hubDir,
		log:       log,
	}
}

// CheckModel resolves the model paths once, for startup validation.
func (s *Synthesizer) CheckModel() error {
	_, err := ResolveModelPaths(
		s.hubDir,
		s.cfg.ModelRepo,
		s.cfg.CheckpointPath,
		s.cfg.VocabPath,
	)

	return err
}

// Synthesize runs one inference and returns the produced WAV bytes. The
// output file stays in the output directory; callers own its lifecycle.
func (s *Synthesizer) Synthesize(ctx context.Context, job core.SynthesisJob) ([]byte, error) {
	paths, err := ResolveModelPaths(
		s.hubDir,
		s.cfg.ModelRepo,
		s.cfg.CheckpointPath,
		s.cfg.VocabPath,
	)
	if err != nil {
		return nil, err
	}

	outputFile := outputFilePrefix +
		strings.ReplaceAll(uuid.NewString(), "-", "") + wavExtension
	args := s.buildArgs(paths, job, outputFile)

	runCtx, cancel := context.WithTimeout(
		ctx,
		time.Duration(s.cfg.TimeoutSeconds)*time.Second,
	)
	defer cancel()

	// #nosec G204 -- binary and model paths come from validated configuration
	cmd := exec.CommandContext(runCtx, s.cfg.Binary, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf(
				"synthesis timed out after %ds: %w",
				s.cfg.TimeoutSeconds,
				context.DeadlineExceeded,
			)
		}

		return nil, fmt.Errorf(
			"%s failed: %w - output: %s",
			s.cfg.Binary,
			runErr,
			truncate(string(output)),
		)
	}

	return s.readProducedWAV(filepath.Join(s.outputDir, outputFile))
}

// buildArgs maps a job onto the inference CLI flag surface. Optional knobs
// are emitted only when the request set them.
func (s *Synthesizer) buildArgs(paths ModelPaths, job core.SynthesisJob, outputFile string) []string {
	args := []string{
		"--ckpt_file", paths.Checkpoint,
		"--vocab_file", paths.Vocab,
		"--gen_text", job.Text,
		"--output_dir", s.outputDir,
		"--output_file", outputFile,
		"--device", s.cfg.Device,
	}

	if job.RefAudioPath != "" {
		args = append(args, "--ref_audio", job.RefAudioPath)
	}

	if job.RefText != "" {
		args = append(args, "--ref_text", job.RefText)
	}

	if job.VocoderName != "" {
		args = append(args, "--vocoder_name", job.VocoderName)
	}

	args = appendBoolFlag(args, "--remove_silence", job.RemoveSilence)
	args = appendFloatFlag(args, "--target_rms", job.TargetRMS)
	args = appendFloatFlag(args, "--speed", job.Speed)
	args = appendFloatFlag(args, "--cfg_strength", job.CFGStrength)

	if job.NFEStep != nil {
		args = append(args, "--nfe_step", strconv.Itoa(*job.NFEStep))
	}

	args = appendBoolFlag(args, "--fix_duration", job.FixDuration)
	args = appendFloatFlag(args, "--cross_fade_duration", job.CrossFadeDuration)
	args = appendBoolFlag(args, "--save_chunk", job.SaveChunk)

	return args
}

// readProducedWAV reads the expected output file, falling back to the newest
// wav in the output directory when the binary renamed it.
func (s *Synthesizer) readProducedWAV(expectedPath string) ([]byte, error) {
	path := expectedPath

	_, statErr := os.Stat(path)
	if statErr != nil {
		fallback, findErr := s.newestWAV()
		if findErr != nil {
			return nil, findErr
		}

		s.log.Warn("Expected output %s missing, using %s", expectedPath, fallback)
		path = fallback
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis output: %w", err)
	}

	if len(data) == 0 {
		return nil, core.ErrNoOutputProduced
	}

	return data, nil
}

func (s *Synthesizer) newestWAV() (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.outputDir, "*"+wavExtension))
	if err != nil {
		return "", fmt.Errorf("failed to scan output directory: %w", err)
	}

	if len(matches) == 0 {
		return "", core.ErrNoOutputProduced
	}

	sortByModTimeDesc(matches)

	return matches[0], nil
}

func appendBoolFlag(args []string, flag string, value *bool) []string {
	if value == nil {
		return args
	}

	return append(args, flag, strconv.FormatBool(*value))
}

func appendFloatFlag(args []string, flag string, value *float64) []string {
	if value == nil {
		return args
	}

	return append(args, flag, strconv.FormatFloat(*value, 'f', -1, 64))
}

func truncate(output string) string {
	const maxLen = 1000

	trimmed := strings.TrimSpace(output)
	if len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}

	return trimmed
}
