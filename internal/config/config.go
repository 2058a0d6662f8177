// Package config provides the configuration structure for the f5-tts-api service.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Environment variables honored as overrides over the TOML file.
const (
	envPort    = "PORT"
	envDevice  = "DEVICE"
	envRefWAV  = "REF_AUDIO_PATH"
	envRefText = "REF_TEXT_PATH"
)

// Defaults applied when the TOML file leaves a field unset.
const (
	defaultPort            = 4123
	defaultF5Binary        = "f5-tts_infer-cli"
	defaultDevice          = "cuda"
	defaultModelRepo       = "Misha24-10/F5-TTS_RUSSIAN"
	defaultCheckpointPath  = "F5TTS_v1_Base_v2/model_last_inference.safetensors"
	defaultVocabPath       = "F5TTS_v1_Base/vocab.txt"
	defaultSynthTimeoutSec = 600
	defaultAccentTimeout   = 30
	defaultAccentOnError   = AccentPassthrough
	defaultFFmpegBinary    = "ffmpeg"
	defaultMP3Bitrate      = "192k"
	defaultFetchTimeoutSec = 10
	defaultFetchMaxBytes   = 64 << 20
	defaultWhisperModel    = "whisper-1"
	defaultWhisperLanguage = "ru"
	defaultInputDir        = "/data/input"
	defaultOutputDir       = "/data/output"
	defaultVoicesDir       = "/data/voices"
	defaultLogsDir         = "/var/log/f5-tts-api"
	defaultServerTimeout   = 630
	defaultShutdownTimeout = 30
)

// Accent failure policies.
const (
	// AccentPassthrough sends the text to the model unaccented when the
	// accentizer fails.
	AccentPassthrough = "passthrough"
	// AccentFail surfaces accentizer failures as synthesis errors.
	AccentFail = "fail"
)

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port"`
	ReadTimeoutSeconds     int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

// PathsConfig holds the staging directories and the log directory.
type PathsConfig struct {
	InputDir    string `toml:"input_dir"`
	OutputDir   string `toml:"output_dir"`
	VoicesDir   string `toml:"voices_dir"`
	BaseLogsDir string `toml:"base_logs_dir"`
}

// F5Config holds the inference binary configuration.
type F5Config struct {
	Binary         string `toml:"binary"`
	Device         string `toml:"device"`
	ModelRepo      string `toml:"model_repo"`
	CheckpointPath string `toml:"checkpoint_path"`
	VocabPath      string `toml:"vocab_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AccentConfig holds the external accentizer configuration.
type AccentConfig struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	OnError        string   `toml:"on_error"`
}

// FFmpegConfig holds the mp3 transcoder configuration.
type FFmpegConfig struct {
	Binary     string `toml:"binary"`
	MP3Bitrate string `toml:"mp3_bitrate"`
}

// FetchConfig bounds reference media downloads.
type FetchConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBytes       int64  `toml:"max_bytes"`
	RefAudioPath   string `toml:"ref_audio_path"`
	RefTextPath    string `toml:"ref_text_path"`
}

// WhisperConfig enables reference-text transcription when a request carries
// reference audio without reference text.
type WhisperConfig struct {
	Enabled  bool   `toml:"enabled"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

// NATSConfig holds the optional job-intake configuration.
type NATSConfig struct {
	Enabled                  bool   `toml:"enabled"`
	URL                      string `toml:"url"`
	SpeechJobsSubject        string `toml:"speech_jobs_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Paths   PathsConfig   `toml:"paths"`
	F5      F5Config      `toml:"f5"`
	Accent  AccentConfig  `toml:"accent"`
	FFmpeg  FFmpegConfig  `toml:"ffmpeg"`
	Fetch   FetchConfig   `toml:"fetch"`
	Whisper WhisperConfig `toml:"whisper"`
	NATS    NATSConfig    `toml:"nats"`
}

// Load loads the configuration through the central configurator, fills
// defaults, and applies environment overrides.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.ApplyEnvOverrides()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}

	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = defaultServerTimeout
	}

	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = defaultServerTimeout
	}

	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeout
	}

	if c.Paths.InputDir == "" {
		c.Paths.InputDir = defaultInputDir
	}

	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = defaultOutputDir
	}

	if c.Paths.VoicesDir == "" {
		c.Paths.VoicesDir = defaultVoicesDir
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = defaultLogsDir
	}

	c.applyF5Defaults()
	c.applyToolDefaults()
}

func (c *Config) applyF5Defaults() {
	if c.F5.Binary == "" {
		c.F5.Binary = defaultF5Binary
	}

	if c.F5.Device == "" {
		c.F5.Device = defaultDevice
	}

	if c.F5.ModelRepo == "" {
		c.F5.ModelRepo = defaultModelRepo
	}

	if c.F5.CheckpointPath == "" {
		c.F5.CheckpointPath = defaultCheckpointPath
	}

	if c.F5.VocabPath == "" {
		c.F5.VocabPath = defaultVocabPath
	}

	if c.F5.TimeoutSeconds == 0 {
		c.F5.TimeoutSeconds = defaultSynthTimeoutSec
	}
}

func (c *Config) applyToolDefaults() {
	if c.Accent.TimeoutSeconds == 0 {
		c.Accent.TimeoutSeconds = defaultAccentTimeout
	}

	if c.Accent.OnError == "" {
		c.Accent.OnError = defaultAccentOnError
	}

	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}

	if c.FFmpeg.MP3Bitrate == "" {
		c.FFmpeg.MP3Bitrate = defaultMP3Bitrate
	}

	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSec
	}

	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = defaultFetchMaxBytes
	}

	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}

	if c.Whisper.Language == "" {
		c.Whisper.Language = defaultWhisperLanguage
	}
}

// ApplyEnvOverrides applies the deployment environment contract: PORT and
// DEVICE override the file, REF_AUDIO_PATH and REF_TEXT_PATH pin the
// reference media for every request.
func (c *Config) ApplyEnvOverrides() error {
	if port := os.Getenv(envPort); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", envPort, port, err)
		}

		c.Server.Port = parsed
	}

	if device := os.Getenv(envDevice); device != "" {
		c.F5.Device = device
	}

	if refAudio := os.Getenv(envRefWAV); refAudio != "" {
		c.Fetch.RefAudioPath = refAudio
	}

	if refText := os.Getenv(envRefText); refText != "" {
		c.Fetch.RefTextPath = refText
	}

	return nil
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
