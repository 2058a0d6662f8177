// Package accent places stress marks on Russian text through an external
// accentizer binary. The F5 Russian checkpoint was trained on stressed input,
// so unaccented text degrades pronunciation of homographs.
package accent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
)

// Processor runs the accentizer binary. The contract: UTF-8 text on stdin,
// stressed text on stdout, non-zero exit on failure.
type Processor struct {
	cfg config.AccentConfig
	log *logger.Logger
}

// New creates an accent processor from configuration.
func New(cfg config.AccentConfig, log *logger.Logger) *Processor {
	return &Processor{
		cfg: cfg,
		log: log,
	}
}

// Accentuate runs the accentizer over the text. A trailing space is appended
// to the result; the inference binary clips the final token without it.
func (p *Processor) Accentuate(ctx context.Context, text string) (string, error) {
	runCtx, cancel := context.WithTimeout(
		ctx,
		time.Duration(p.cfg.TimeoutSeconds)*time.Second,
	)
	defer cancel()

	// #nosec G204 -- command comes from validated service configuration
	cmd := exec.CommandContext(runCtx, p.cfg.Command, p.cfg.Args...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", fmt.Errorf(
			"%w: %w - stderr: %s",
			core.ErrAccentFailed,
			err,
			strings.TrimSpace(stderr.String()),
		)
	}

	accented := strings.TrimRight(stdout.String(), "\r\n")
	if accented == "" {
		return "", fmt.Errorf("%w: accentizer produced no output", core.ErrAccentFailed)
	}

	return accented + " ", nil
}
