// Package checkpoint provides checkpoint stores.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
)

const (
	filePrefix = "checkpoint-"
	fileSuffix = ".json"
)

// FileStore keeps one JSON document per checkpoint in a directory.
// Files are named checkpoint-<round>.json with the round zero-padded so
// lexical and numeric order agree.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty checkpoint directory", checkpoint.ErrInvalidCheckpoint)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// FileName returns the file name used for a round.
func FileName(round int) string {
	return fmt.Sprintf("%s%08d%s", filePrefix, round, fileSuffix)
}

// Save writes the checkpoint to a temp file, syncs it and renames it into
// place, so a reader never observes a partial document.
func (s *FileStore) Save(ctx context.Context, c *checkpoint.Checkpoint) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := checkpoint.Encode(c)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, FileName(c.RoundNumber))
	tempFile, err := os.CreateTemp(s.dir, ".checkpoint-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return "", fmt.Errorf("rename checkpoint: %w", err)
	}

	success = true
	return path, nil
}

// Load reads the checkpoint at path. A relative name is resolved against
// the store directory.
func (s *FileStore) Load(ctx context.Context, ref string) (*checkpoint.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ref
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(s.dir, ref)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is a checkpoint reference chosen by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", checkpoint.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return checkpoint.Decode(data)
}

// ForRound loads the checkpoint taken after round.
func (s *FileStore) ForRound(ctx context.Context, round int) (*checkpoint.Checkpoint, error) {
	return s.Load(ctx, FileName(round))
}

// List returns the checkpoint files ordered by round. Unparseable names are ignored.
func (s *FileStore) List(ctx context.Context) ([]checkpoint.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	var infos []checkpoint.Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		round, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		infos = append(infos, checkpoint.Info{
			Ref:         filepath.Join(s.dir, e.Name()),
			RoundNumber: round,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].RoundNumber < infos[j].RoundNumber
	})
	return infos, nil
}

// Latest returns the newest valid checkpoint.
func (s *FileStore) Latest(ctx context.Context) (*checkpoint.Checkpoint, error) {
	return latest(ctx, s)
}

func parseFileName(name string) (int, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
