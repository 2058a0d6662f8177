// Package refmedia_test tests reference media staging.
package refmedia_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
	"github.com/book-expert/f5-tts-api/internal/refmedia"
	"github.com/book-expert/f5-tts-api/internal/text"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "refmedia-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func newTestResolver(t *testing.T, fetchCfg config.FetchConfig) (*refmedia.Resolver, config.PathsConfig) {
	t.Helper()

	paths := config.PathsConfig{
		InputDir:    t.TempDir(),
		OutputDir:   t.TempDir(),
		VoicesDir:   t.TempDir(),
		BaseLogsDir: t.TempDir(),
	}

	if fetchCfg.TimeoutSeconds == 0 {
		fetchCfg.TimeoutSeconds = 5
	}

	if fetchCfg.MaxBytes == 0 {
		fetchCfg.MaxBytes = 1 << 20
	}

	resolver := refmedia.NewResolver(
		fetchCfg,
		paths,
		text.NewNormalizer(),
		nil,
		newTestLogger(t),
	)

	return resolver, paths
}

func TestResolveEmptyRequest(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t, config.FetchConfig{})

	refs, cleanup, err := resolver.Resolve(context.Background(), "", "")
	defer cleanup()

	require.NoError(t, err)
	assert.Empty(t, refs.AudioPath)
	assert.Empty(t, refs.Text)
}

func TestResolveDownloadsURLReferences(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Ext(r.URL.Path) == ".wav" {
			_, _ = w.Write([]byte("RIFF-audio-bytes"))

			return
		}

		_, _ = w.Write([]byte("<p>Эталонный текст</p>"))
	}))
	defer server.Close()

	resolver, paths := newTestResolver(t, config.FetchConfig{})

	refs, cleanup, err := resolver.Resolve(
		context.Background(),
		server.URL+"/voice.wav",
		server.URL+"/ref.txt",
	)
	require.NoError(t, err)

	assert.Equal(t, paths.InputDir, filepath.Dir(refs.AudioPath))
	assert.FileExists(t, refs.AudioPath)
	assert.Equal(t, "Эталонный текст", refs.Text)

	cleanup()
	assert.NoFileExists(t, refs.AudioPath)
}

func TestResolveUnreachableURLFails(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t, config.FetchConfig{})

	_, cleanup, err := resolver.Resolve(
		context.Background(),
		"http://127.0.0.1:1/voice.wav",
		"",
	)
	defer cleanup()

	require.ErrorIs(t, err, core.ErrRemoteFetch)
}

func TestResolveNon2xxStatusFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver, _ := newTestResolver(t, config.FetchConfig{})

	_, cleanup, err := resolver.Resolve(context.Background(), server.URL+"/gone.wav", "")
	defer cleanup()

	require.ErrorIs(t, err, core.ErrRemoteFetch)
}

func TestResolveSizeCapEnforced(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	resolver, _ := newTestResolver(t, config.FetchConfig{MaxBytes: 1024})

	_, cleanup, err := resolver.Resolve(context.Background(), server.URL+"/big.wav", "")
	defer cleanup()

	require.ErrorIs(t, err, core.ErrRemoteFetch)
}

func TestResolveLocalVoicePath(t *testing.T) {
	t.Parallel()

	resolver, paths := newTestResolver(t, config.FetchConfig{})

	voicePath := filepath.Join(paths.VoicesDir, "base.wav")
	require.NoError(t, os.WriteFile(voicePath, []byte("audio"), 0o600))

	refs, cleanup, err := resolver.Resolve(context.Background(), "base.wav", "текст эталона")
	defer cleanup()

	require.NoError(t, err)
	assert.Equal(t, voicePath, refs.AudioPath)
	assert.Equal(t, "текст эталона", refs.Text)
}

func TestResolveRejectsTraversal(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t, config.FetchConfig{})

	_, cleanup, err := resolver.Resolve(context.Background(), "../../etc/passwd.wav", "")
	defer cleanup()

	require.ErrorIs(t, err, core.ErrUnsafePath)
}

func TestResolveRejectsOutsidePath(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t, config.FetchConfig{})

	outside := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(outside, []byte("audio"), 0o600))

	_, cleanup, err := resolver.Resolve(context.Background(), outside, "")
	defer cleanup()

	require.ErrorIs(t, err, core.ErrUnsafePath)
}

func TestResolveRejectsNonAudioExtension(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t, config.FetchConfig{})

	_, cleanup, err := resolver.Resolve(context.Background(), "notes.txt", "")
	defer cleanup()

	require.ErrorIs(t, err, core.ErrUnsafePath)
}

func TestResolveEnvPinnedReferenceWins(t *testing.T) {
	t.Parallel()

	pinnedAudio := filepath.Join(t.TempDir(), "pinned.wav")
	require.NoError(t, os.WriteFile(pinnedAudio, []byte("audio"), 0o600))

	pinnedText := filepath.Join(t.TempDir(), "pinned.txt")
	require.NoError(t, os.WriteFile(pinnedText, []byte("закреплённый текст"), 0o600))

	resolver, _ := newTestResolver(t, config.FetchConfig{
		RefAudioPath: pinnedAudio,
		RefTextPath:  pinnedText,
	})

	refs, cleanup, err := resolver.Resolve(
		context.Background(),
		"http://127.0.0.1:1/ignored.wav",
		"ignored",
	)
	defer cleanup()

	require.NoError(t, err)
	assert.Equal(t, pinnedAudio, refs.AudioPath)
	assert.Equal(t, "закреплённый текст", refs.Text)
}
