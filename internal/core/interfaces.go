// Package core defines the core types and interfaces for the f5-tts-api service.
package core

import (
	"context"
	"errors"
	"strings"
)

// Static errors surfaced by the request pipeline. The HTTP layer maps these to
// status codes, so every failure class gets its own sentinel.
var (
	// ErrEmptyInput indicates the request carried no text to synthesize.
	ErrEmptyInput = errors.New("input text required")
	// ErrUnsupportedFormat indicates an out_format outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrUnsafePath indicates a reference path that was rejected by filtering.
	ErrUnsafePath = errors.New("reference path rejected")
	// ErrRemoteFetch indicates a reference URL could not be downloaded.
	ErrRemoteFetch = errors.New("remote fetch failed")
	// ErrNoOutputProduced indicates the synthesis run left no audio behind.
	ErrNoOutputProduced = errors.New("no output produced")
	// ErrAccentFailed indicates the accentizer rejected the text.
	ErrAccentFailed = errors.New("accent placement failed")
)

// Format identifies a supported output container format.
type Format string

const (
	// FormatWAV is the default output container.
	FormatWAV Format = "wav"
	// FormatMP3 requires transcoding through ffmpeg.
	FormatMP3 Format = "mp3"
)

// ContentType returns the HTTP content type for the format.
func (f Format) ContentType() string {
	if f == FormatMP3 {
		return "audio/mpeg"
	}

	return "audio/wav"
}

// ParseFormat validates an out_format value. An empty value selects wav.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatWAV):
		return FormatWAV, nil
	case string(FormatMP3):
		return FormatMP3, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// SpeechRequest is the synthesis request accepted by the HTTP API and the
// NATS worker. Pointer fields are optional knobs passed through to the
// inference binary only when set.
type SpeechRequest struct {
	Input             string   `json:"input"`
	OutFormat         string   `json:"out_format,omitempty"`
	RefAudio          string   `json:"ref_audio,omitempty"`
	RefText           string   `json:"ref_text,omitempty"`
	VocoderName       string   `json:"vocoder_name,omitempty"`
	RemoveSilence     *bool    `json:"remove_silence,omitempty"`
	TargetRMS         *float64 `json:"target_rms,omitempty"`
	Speed             *float64 `json:"speed,omitempty"`
	CFGStrength       *float64 `json:"cfg_strength,omitempty"`
	NFEStep           *int     `json:"nfe_step,omitempty"`
	FixDuration       *bool    `json:"fix_duration,omitempty"`
	CrossFadeDuration *float64 `json:"cross_fade_duration,omitempty"`
	SaveChunk         *bool    `json:"save_chunk,omitempty"`
}

// Validate checks the request invariants that hold for every entry point.
func (r *SpeechRequest) Validate() error {
	if strings.TrimSpace(r.Input) == "" {
		return ErrEmptyInput
	}

	_, err := ParseFormat(r.OutFormat)

	return err
}

// SynthesisJob is the fully staged input handed to a Synthesizer: accented
// text plus locally resolved reference media.
type SynthesisJob struct {
	Text              string
	RefAudioPath      string
	RefText           string
	VocoderName       string
	RemoveSilence     *bool
	TargetRMS         *float64
	Speed             *float64
	CFGStrength       *float64
	NFEStep           *int
	FixDuration       *bool
	CrossFadeDuration *float64
	SaveChunk         *bool
}

// JobFromRequest copies the synthesis knobs of a request into a job.
func JobFromRequest(req *SpeechRequest) SynthesisJob {
	return SynthesisJob{
		Text:              req.Input,
		RefAudioPath:      "",
		RefText:           "",
		VocoderName:       req.VocoderName,
		RemoveSilence:     req.RemoveSilence,
		TargetRMS:         req.TargetRMS,
		Speed:             req.Speed,
		CFGStrength:       req.CFGStrength,
		NFEStep:           req.NFEStep,
		FixDuration:       req.FixDuration,
		CrossFadeDuration: req.CrossFadeDuration,
		SaveChunk:         req.SaveChunk,
	}
}

// SpeechResult is the encoded audio returned to the caller.
type SpeechResult struct {
	Data   []byte
	Format Format
}

// Accentuator places stress marks on Russian text before synthesis.
type Accentuator interface {
	Accentuate(ctx context.Context, text string) (string, error)
}

// Synthesizer turns a staged job into WAV audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, job SynthesisJob) ([]byte, error)
}

// Transcriber produces reference text from a reference audio file.
type Transcriber interface {
	TranscribeFile(ctx context.Context, audioPath string) (string, error)
}

// ObjectStore is a key-value blob store used by the NATS worker path.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}
