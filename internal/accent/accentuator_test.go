// Package accent_test tests the external accentizer integration.
package accent_test

import (
	"context"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/f5-tts-api/internal/accent"
	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "accent-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func TestAccentuateUsesStdinStdout(t *testing.T) {
	t.Parallel()

	// `cat` stands in for the accentizer: echoes stdin to stdout.
	processor := accent.New(config.AccentConfig{
		Command:        "cat",
		Args:           nil,
		TimeoutSeconds: 5,
		OnError:        config.AccentPassthrough,
	}, newTestLogger(t))

	got, err := processor.Accentuate(context.Background(), "Привет, мир!")
	require.NoError(t, err)
	assert.Equal(t, "Привет, мир! ", got)
}

func TestAccentuateReportsFailure(t *testing.T) {
	t.Parallel()

	processor := accent.New(config.AccentConfig{
		Command:        "false",
		Args:           nil,
		TimeoutSeconds: 5,
		OnError:        config.AccentFail,
	}, newTestLogger(t))

	_, err := processor.Accentuate(context.Background(), "текст")
	require.ErrorIs(t, err, core.ErrAccentFailed)
}

func TestAccentuateMissingBinary(t *testing.T) {
	t.Parallel()

	processor := accent.New(config.AccentConfig{
		Command:        "definitely-not-installed-accentizer",
		Args:           nil,
		TimeoutSeconds: 5,
		OnError:        config.AccentPassthrough,
	}, newTestLogger(t))

	_, err := processor.Accentuate(context.Background(), "текст")
	require.ErrorIs(t, err, core.ErrAccentFailed)
}
