// Package pipeline wires the per-request synthesis flow: normalize,
// accentuate, stage references, infer, encode.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/f5-tts-api/internal/audio"
	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
	"github.com/book-expert/f5-tts-api/internal/metrics"
	"github.com/book-expert/f5-tts-api/internal/refmedia"
	"github.com/book-expert/f5-tts-api/internal/text"
)

// Transcoder converts WAV bytes into the mp3 container.
type Transcoder interface {
	ToMP3(ctx context.Context, wavData []byte) ([]byte, error)
}

// Deps are the pipeline collaborators.
type Deps struct {
	Normalizer    *text.Normalizer
	Accentuator   core.Accentuator
	Resolver      *refmedia.Resolver
	Synthesizer   core.Synthesizer
	Transcoder    Transcoder
	Collector     *metrics.Collector
	Log           *logger.Logger
	AccentOnError string
}

// Pipeline executes speech requests. A single-slot gate serializes model
// invocations: the deployment runs one inference at a time and concurrent
// requests wait their turn.
type Pipeline struct {
	deps Deps
	gate chan struct{}
}

// New creates a pipeline from its collaborators.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps: deps,
		gate: make(chan struct{}, 1),
	}
}

// Speak runs one request through the full pipeline and returns the encoded
// audio.
func (p *Pipeline) Speak(ctx context.Context, req core.SpeechRequest) (*core.SpeechResult, error) {
	err := req.Validate()
	if err != nil {
		return nil, err
	}

	format, err := core.ParseFormat(req.OutFormat)
	if err != nil {
		return nil, err
	}

	normalized := p.deps.Normalizer.NormalizeInput(req.Input)

	accented, err := p.accentText(ctx, normalized)
	if err != nil {
		return nil, err
	}

	refs, cleanup, err := p.deps.Resolver.Resolve(ctx, req.RefAudio, req.RefText)
	defer cleanup()

	if err != nil {
		return nil, err
	}

	job := core.JobFromRequest(&req)
	job.Text = accented
	job.RefAudioPath = refs.AudioPath
	job.RefText = refs.Text

	wavData, err := p.synthesize(ctx, job)
	if err != nil {
		return nil, err
	}

	waveform, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, fmt.Errorf("synthesis produced invalid audio: %w", err)
	}

	p.deps.Log.Info(
		"Synthesized %d samples at %d Hz",
		waveform.SampleCount(),
		waveform.SampleRate,
	)

	data := wavData
	if format == core.FormatMP3 {
		data, err = p.deps.Transcoder.ToMP3(ctx, wavData)
		if err != nil {
			return nil, fmt.Errorf("failed to transcode to mp3: %w", err)
		}
	}

	return &core.SpeechResult{Data: data, Format: format}, nil
}

// accentText applies the configured accent failure policy.
func (p *Pipeline) accentText(ctx context.Context, input string) (string, error) {
	accented, err := p.deps.Accentuator.Accentuate(ctx, input)
	if err == nil {
		return accented, nil
	}

	if p.deps.AccentOnError == config.AccentFail {
		return "", err
	}

	p.deps.Log.Warn("Accent placement failed, passing text through unaccented: %v", err)
	p.deps.Collector.ObserveAccentFallback()

	return input, nil
}

// synthesize acquires the inference gate and runs the model.
func (p *Pipeline) synthesize(ctx context.Context, job core.SynthesisJob) ([]byte, error) {
	select {
	case p.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("request canceled while waiting for inference slot: %w", ctx.Err())
	}

	defer func() { <-p.gate }()

	start := time.Now()

	wavData, err := p.deps.Synthesizer.Synthesize(ctx, job)
	p.deps.Collector.ObserveSynthesis(time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	return wavData, nil
}

// NewTranscoderFromConfig builds the ffmpeg transcoder for the pipeline.
func NewTranscoderFromConfig(cfg config.FFmpegConfig, log *logger.Logger) Transcoder {
	return audio.NewTranscoder(cfg.Binary, cfg.MP3Bitrate, log)
}
