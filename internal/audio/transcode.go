package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
)

// File permissions for staged transcoder inputs.
const filePermissions = 0o600

// Transcoder converts WAV bytes into mp3 by shelling out to ffmpeg.
type Transcoder struct {
	binary  string
	bitrate string
	log     *logger.Logger
}

// NewTranscoder creates a transcoder for the given ffmpeg binary and bitrate.
func NewTranscoder(binary, bitrate string, log *logger.Logger) *Transcoder {
	return &Transcoder{
		binary:  binary,
		bitrate: bitrate,
		log:     log,
	}
}

// ToMP3 transcodes WAV data to mp3. ffmpeg works on files, so both sides are
// staged in a temp directory that is removed afterwards.
func (t *Transcoder) ToMP3(ctx context.Context, wavData []byte) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "transcode-")
	if err != nil {
		return nil, fmt.Errorf("failed to create transcode dir: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(workDir)
		if removeErr != nil {
			t.log.Warn("Failed to remove transcode dir '%s': %v", workDir, removeErr)
		}
	}()

	wavPath := filepath.Join(workDir, "in.wav")
	mp3Path := filepath.Join(workDir, "out.mp3")

	err = os.WriteFile(wavPath, wavData, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to stage wav for transcoding: %w", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", wavPath,
		"-b:a", t.bitrate,
		mp3Path,
	}

	// #nosec G204 -- binary comes from validated service configuration
	cmd := exec.CommandContext(ctx, t.binary, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf(
			"ffmpeg transcode failed: %w - output: %s",
			err,
			strings.TrimSpace(string(output)),
		)
	}

	mp3Data, err := os.ReadFile(mp3Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcoded mp3: %w", err)
	}

	return mp3Data, nil
}
