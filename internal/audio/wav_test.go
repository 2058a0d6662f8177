// Package audio_test tests the WAV codec round trip.
package audio_test

import (
	"math"
	"testing"

	"github.com/book-expert/f5-tts-api/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sineWaveform builds a short mono 24 kHz sine, the shape the synthesis
// binary produces.
func sineWaveform(sampleCount int) *audio.Waveform {
	samples := make([]int, sampleCount)
	for i := range samples {
		samples[i] = int(16000 * math.Sin(2*math.Pi*440*float64(i)/24000))
	}

	return &audio.Waveform{
		Samples:    samples,
		SampleRate: 24000,
		Channels:   1,
		BitDepth:   16,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	original := sineWaveform(2400)

	encoded, err := audio.EncodeWAV(original)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := audio.DecodeWAV(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.SampleRate, decoded.SampleRate)
	assert.Equal(t, original.Channels, decoded.Channels)
	assert.Equal(t, original.SampleCount(), decoded.SampleCount())
	assert.Equal(t, original.Samples, decoded.Samples)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := audio.DecodeWAV([]byte("definitely not a riff container"))
	require.ErrorIs(t, err, audio.ErrInvalidWAV)
}

func TestEncodeWAVRejectsEmptyWaveform(t *testing.T) {
	t.Parallel()

	_, err := audio.EncodeWAV(&audio.Waveform{
		Samples:    nil,
		SampleRate: 24000,
		Channels:   1,
		BitDepth:   16,
	})
	require.ErrorIs(t, err, audio.ErrEmptyWaveform)
}

func TestSampleCountStereo(t *testing.T) {
	t.Parallel()

	waveform := &audio.Waveform{
		Samples:    make([]int, 200),
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}

	assert.Equal(t, 100, waveform.SampleCount())
}
