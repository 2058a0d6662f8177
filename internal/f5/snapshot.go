// Package f5 invokes the f5-tts_infer-cli binary and resolves its model
// files from the local HuggingFace hub cache.
package f5

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/book-expert/f5-tts-api/internal/ttsutils"
)

// Static errors.
var (
	// ErrSnapshotNotFound indicates the model repo has no cached snapshot.
	ErrSnapshotNotFound = errors.New("model snapshot not found in huggingface cache")
	// ErrCheckpointNotFound indicates the checkpoint file is missing from the snapshot.
	ErrCheckpointNotFound = errors.New("model checkpoint not found")
	// ErrVocabNotFound indicates the vocab file is missing from the snapshot.
	ErrVocabNotFound = errors.New("vocab file not found")
)

// ModelPaths holds the resolved absolute paths handed to the inference binary.
type ModelPaths struct {
	Checkpoint string
	Vocab      string
}

// ResolveModelPaths locates the newest snapshot of the model repo under the
// hub cache and verifies the checkpoint and vocab files inside it. The
// entrypoint downloads weights before the service starts, so a miss here is a
// deployment error.
func ResolveModelPaths(hubDir, repo, checkpointRel, vocabRel string) (ModelPaths, error) {
	snapshotsGlob := filepath.Join(
		hubDir,
		ttsutils.RepoCacheDirName(repo),
		"snapshots",
		"*",
	)

	snapshotDirs, err := filepath.Glob(snapshotsGlob)
	if err != nil {
		return ModelPaths{}, fmt.Errorf("failed to scan snapshots: %w", err)
	}

	if len(snapshotDirs) == 0 {
		return ModelPaths{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, repo)
	}

	sortByModTimeDesc(snapshotDirs)

	snapshotDir := snapshotDirs[0]

	checkpoint := filepath.Join(snapshotDir, checkpointRel)

	err = statFile(checkpoint)
	if err != nil {
		return ModelPaths{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, checkpoint)
	}

	vocab := filepath.Join(snapshotDir, vocabRel)

	err = statFile(vocab)
	if err != nil {
		return ModelPaths{}, fmt.Errorf("%w: %s", ErrVocabNotFound, vocab)
	}

	return ModelPaths{Checkpoint: checkpoint, Vocab: vocab}, nil
}

// sortByModTimeDesc orders paths newest-first; unreadable entries sort last.
func sortByModTimeDesc(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		infoI, errI := os.Stat(paths[i])
		infoJ, errJ := os.Stat(paths[j])

		if errI != nil || errJ != nil {
			return errJ != nil && errI == nil
		}

		return infoI.ModTime().After(infoJ.ModTime())
	})
}

func statFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("expected file, found directory: %s", path)
	}

	return nil
}
