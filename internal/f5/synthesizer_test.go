package f5_test

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/f5-tts-api/internal/audio"
	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
	"github.com/book-expert/f5-tts-api/internal/f5"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "f5-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

// writeFakeInferBinary creates a shell script standing in for
// f5-tts_infer-cli: it records its arguments and drops a valid wav into the
// output directory.
func writeFakeInferBinary(t *testing.T, outputDir, argsFile string) string {
	t.Helper()

	fixture := filepath.Join(t.TempDir(), "fixture.wav")
	samples := make([]int, 240)

	for i := range samples {
		samples[i] = int(8000 * math.Sin(float64(i)/10))
	}

	wavData, err := audio.EncodeWAV(&audio.Waveform{
		Samples:    samples,
		SampleRate: 24000,
		Channels:   1,
		BitDepth:   16,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fixture, wavData, 0o600))

	script := fmt.Sprintf(
		"#!/bin/sh\nprintf '%%s\\n' \"$@\" > %q\ncp %q %q\n",
		argsFile,
		fixture,
		filepath.Join(outputDir, "result.wav"),
	)

	binary := filepath.Join(t.TempDir(), "fake-infer")
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o700))

	return binary
}

func testF5Config(t *testing.T, binary string) config.F5Config {
	t.Helper()

	return config.F5Config{
		Binary:         binary,
		Device:         "cpu",
		ModelRepo:      testRepo,
		CheckpointPath: testCheckpointRel,
		VocabPath:      testVocabRel,
		TimeoutSeconds: 30,
	}
}

func TestSynthesizeProducesWAV(t *testing.T) {
	t.Parallel()

	hubDir := t.TempDir()
	writeSnapshot(t, hubDir, "snap")

	outputDir := t.TempDir()
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	binary := writeFakeInferBinary(t, outputDir, argsFile)

	synth := f5.New(testF5Config(t, binary), outputDir, hubDir, newTestLogger(t))

	speed := 1.5
	nfe := 32
	removeSilence := true
	job := core.SynthesisJob{
		Text:          "прив+ет мир ",
		RefAudioPath:  "/data/voices/base.wav",
		RefText:       "эталонный текст",
		Speed:         &speed,
		NFEStep:       &nfe,
		RemoveSilence: &removeSilence,
	}

	wavData, err := synth.Synthesize(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, wavData)

	decoded, err := audio.DecodeWAV(wavData)
	require.NoError(t, err)
	assert.Equal(t, 24000, decoded.SampleRate)

	rawArgs, err := os.ReadFile(argsFile)
	require.NoError(t, err)

	args := strings.Split(strings.TrimSpace(string(rawArgs)), "\n")
	assert.Contains(t, args, "--gen_text")
	assert.Contains(t, args, "прив+ет мир ")
	assert.Contains(t, args, "--ref_audio")
	assert.Contains(t, args, "/data/voices/base.wav")
	assert.Contains(t, args, "--ref_text")
	assert.Contains(t, args, "--speed")
	assert.Contains(t, args, "1.5")
	assert.Contains(t, args, "--nfe_step")
	assert.Contains(t, args, "32")
	assert.Contains(t, args, "--remove_silence")
	assert.Contains(t, args, "true")
	assert.Contains(t, args, "--device")
	assert.Contains(t, args, "cpu")
	assert.NotContains(t, args, "--vocoder_name")
	assert.NotContains(t, args, "--cfg_strength")
}

func TestSynthesizeBinaryFailure(t *testing.T) {
	t.Parallel()

	hubDir := t.TempDir()
	writeSnapshot(t, hubDir, "snap")

	synth := f5.New(testF5Config(t, "false"), t.TempDir(), hubDir, newTestLogger(t))

	_, err := synth.Synthesize(context.Background(), core.SynthesisJob{Text: "текст"})
	require.Error(t, err)
}

func TestSynthesizeNoOutputProduced(t *testing.T) {
	t.Parallel()

	hubDir := t.TempDir()
	writeSnapshot(t, hubDir, "snap")

	// `true` exits cleanly without writing anything.
	synth := f5.New(testF5Config(t, "true"), t.TempDir(), hubDir, newTestLogger(t))

	_, err := synth.Synthesize(context.Background(), core.SynthesisJob{Text: "текст"})
	require.ErrorIs(t, err, core.ErrNoOutputProduced)
}

func TestSynthesizeMissingModel(t *testing.T) {
	t.Parallel()

	synth := f5.New(testF5Config(t, "true"), t.TempDir(), t.TempDir(), newTestLogger(t))

	_, err := synth.Synthesize(context.Background(), core.SynthesisJob{Text: "текст"})
	require.ErrorIs(t, err, f5.ErrSnapshotNotFound)

	require.ErrorIs(t, synth.CheckModel(), f5.ErrSnapshotNotFound)
}
