// Package audio provides waveform decoding and container encoding for the
// synthesis pipeline: WAV in both directions, mp3 through ffmpeg.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM format constants.
const (
	pcmFormat       = 1
	defaultBitDepth = 16
)

// Static errors.
var (
	// ErrInvalidWAV indicates data that is not a decodable WAV container.
	ErrInvalidWAV = errors.New("invalid wav data")
	// ErrEmptyWaveform indicates a waveform without samples.
	ErrEmptyWaveform = errors.New("waveform has no samples")
)

// Waveform is the decoded synthesis result: interleaved PCM samples plus the
// format needed to re-encode them.
type Waveform struct {
	Samples    []int
	SampleRate int
	Channels   int
	BitDepth   int
}

// SampleCount returns the number of per-channel sample frames.
func (w *Waveform) SampleCount() int {
	if w.Channels == 0 {
		return 0
	}

	return len(w.Samples) / w.Channels
}

// DecodeWAV parses a WAV container into a Waveform.
func DecodeWAV(data []byte) (*Waveform, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav data: %w", err)
	}

	if buf.Format == nil || len(buf.Data) == 0 {
		return nil, ErrEmptyWaveform
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = defaultBitDepth
	}

	return &Waveform{
		Samples:    buf.Data,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   bitDepth,
	}, nil
}

// EncodeWAV writes a Waveform back into a WAV container. The encoder needs a
// seekable writer for the RIFF header, so the container is staged through a
// temp file.
func EncodeWAV(waveform *Waveform) ([]byte, error) {
	if len(waveform.Samples) == 0 {
		return nil, ErrEmptyWaveform
	}

	tempFile, err := os.CreateTemp("", "encode-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for wav encoding: %w", err)
	}

	tempName := tempFile.Name()
	defer func() {
		_ = os.Remove(tempName)
	}()

	encoder := wav.NewEncoder(
		tempFile,
		waveform.SampleRate,
		waveform.BitDepth,
		waveform.Channels,
		pcmFormat,
	)

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: waveform.Channels,
			SampleRate:  waveform.SampleRate,
		},
		Data:           waveform.Samples,
		SourceBitDepth: waveform.BitDepth,
	}

	err = encoder.Write(buf)
	if err != nil {
		_ = tempFile.Close()

		return nil, fmt.Errorf("failed to write wav samples: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		_ = tempFile.Close()

		return nil, fmt.Errorf("failed to finalize wav container: %w", err)
	}

	err = tempFile.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close temp wav file: %w", err)
	}

	data, err := os.ReadFile(tempName)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded wav: %w", err)
	}

	return data, nil
}
