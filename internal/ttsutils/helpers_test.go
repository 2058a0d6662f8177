// Package ttsutils_test tests the path utility helpers.
package ttsutils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/f5-tts-api/internal/ttsutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceHubDirHonorsHFHome(t *testing.T) {
	t.Setenv("HF_HOME", "/opt/hf")

	assert.Equal(t, filepath.Join("/opt/hf", "hub"), ttsutils.HuggingFaceHubDir())
}

func TestRepoCacheDirName(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		"models--Misha24-10--F5-TTS_RUSSIAN",
		ttsutils.RepoCacheDirName("Misha24-10/F5-TTS_RUSSIAN"),
	)
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "nested", "dir")

	require.NoError(t, ttsutils.EnsureDir(target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent on an existing directory.
	require.NoError(t, ttsutils.EnsureDir(target))
}

func TestIsValidAudioFile(t *testing.T) {
	t.Parallel()

	assert.True(t, ttsutils.IsValidAudioFile("voice.wav"))
	assert.True(t, ttsutils.IsValidAudioFile("voice.MP3"))
	assert.False(t, ttsutils.IsValidAudioFile("voice.txt"))
	assert.False(t, ttsutils.IsValidAudioFile("voice"))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b_c_.wav", ttsutils.SanitizeFilename(`a/b:c?.wav`))
}

func TestExtensionOrDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".mp3", ttsutils.ExtensionOrDefault("http://host/ref.mp3", ".wav"))
	assert.Equal(t, ".wav", ttsutils.ExtensionOrDefault("http://host/ref", ".wav"))
}
