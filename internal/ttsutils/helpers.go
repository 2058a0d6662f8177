// Package ttsutils provides file and path utility functions for the service.
//
// This package focuses on platform-agnostic ways to resolve the model cache,
// validate media filenames, and prepare staging directories.
package ttsutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables used for path resolution.
const (
	envHFHome = "HF_HOME"
)

// Common directory and path constants.
const (
	dotCache               = ".cache"
	huggingfaceDirName     = "huggingface"
	hubDirName             = "hub"
	tmpDir                 = "/tmp"
	defaultDirPermissions  = 0o750
	invalidCharReplacement = "_"
)

// File extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

// HuggingFaceHubDir returns the local HuggingFace hub cache directory,
// honoring HF_HOME and falling back to ~/.cache/huggingface.
func HuggingFaceHubDir() string {
	if hfHome := os.Getenv(envHFHome); hfHome != "" {
		return filepath.Join(hfHome, hubDirName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(tmpDir, huggingfaceDirName, hubDirName)
	}

	return filepath.Join(homeDir, dotCache, huggingfaceDirName, hubDirName)
}

// RepoCacheDirName converts a HuggingFace repo id ("owner/name") into the
// directory name used inside the hub cache ("models--owner--name").
func RepoCacheDirName(repo string) string {
	return "models--" + strings.ReplaceAll(repo, "/", "--")
}

// EnsureDir ensures a directory exists at the given path, creating it and any
// parents if needed.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkdirErr)
		}
	}

	return nil
}

// IsValidAudioFile checks if a filename has a common audio file extension.
func IsValidAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}

// SanitizeFilename removes or replaces characters that are invalid in most
// filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(filename)
}

// ExtensionOrDefault returns the extension of a URL or path, or the fallback
// when there is none. The result always carries a leading dot.
func ExtensionOrDefault(path, fallback string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return fallback
	}

	return ext
}
