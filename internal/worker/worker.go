// Package worker provides the NATS job intake: text-processed events come in,
// audio-chunk-created events go out.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/f5-tts-api/internal/core"
)

// handleMessageTimeout bounds one job end to end, model inference included.
const handleMessageTimeout = 15 * time.Minute

// SpeechService runs one synthesis request. Implemented by pipeline.Pipeline.
type SpeechService interface {
	Speak(ctx context.Context, req core.SpeechRequest) (*core.SpeechResult, error)
}

// NatsWorker subscribes to text-processed events and synthesizes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	service        SpeechService
	log            *logger.Logger
}

// NewNatsWorker creates a worker bound to the given subject.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	service SpeechService,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		service:        service,
		log:            log,
	}
}

// Run subscribes and blocks until the context is canceled, then drains.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal text-processed event: %v", err)

		return
	}

	audioKey, err := w.processJob(ctx, &event)
	if err != nil {
		w.log.Error(
			"Failed to process speech job for workflow %s: %v",
			event.Header.WorkflowID,
			err,
		)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error(
			"Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID,
			err,
		)
	}
}

// processJob downloads the source text, synthesizes it, and uploads the
// resulting audio chunk.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf(
			"failed to download text data for key '%s': %w",
			event.TextKey,
			err,
		)
	}

	req := core.SpeechRequest{
		Input:             string(textData),
		OutFormat:         string(core.FormatWAV),
		RefAudio:          voiceToRefAudio(event.Voice),
		RefText:           "",
		VocoderName:       "",
		RemoveSilence:     nil,
		TargetRMS:         nil,
		Speed:             nil,
		CFGStrength:       nil,
		NFEStep:           nil,
		FixDuration:       nil,
		CrossFadeDuration: nil,
		SaveChunk:         nil,
	}

	result, err := w.service.Speak(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech: %w", err)
	}

	audioKey := uuid.NewString() + ".wav"

	err = w.store.Upload(ctx, audioKey, result.Data)
	if err != nil {
		return "", fmt.Errorf(
			"failed to upload audio data for key '%s': %w",
			audioKey,
			err,
		)
	}

	return audioKey, nil
}

func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

// voiceToRefAudio maps an event voice name to a reference audio file in the
// voices directory. An empty voice selects the deployment default reference.
func voiceToRefAudio(voice string) string {
	if voice == "" {
		return ""
	}

	if filepath.Ext(voice) != "" {
		return voice
	}

	return voice + ".wav"
}
