package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	lockTimeout    = 30 * time.Second
	lockRetryDelay = 250 * time.Millisecond
)

// stagingFile receives the response body next to the destination so the
// final rename stays on one filesystem.
type stagingFile struct {
	file      *os.File
	path      string
	dest      string
	committed bool
}

func stagingPrefix(dest string) string {
	return "." + filepath.Base(dest) + "."
}

func createStaging(dest string) (*stagingFile, error) {
	name := stagingPrefix(dest) + uuid.NewString() + ".part"
	path := filepath.Join(filepath.Dir(dest), name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &stagingFile{file: file, path: path, dest: dest}, nil
}

// commit makes the staged bytes visible at dest with the given mode.
func (s *stagingFile) commit(mode os.FileMode) error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	if err := os.Chmod(s.path, mode); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(s.path, s.dest); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}
	s.committed = true
	return nil
}

// discard removes the staging file unless it was committed.
func (s *stagingFile) discard() error {
	if s.committed {
		return nil
	}
	s.file.Close() // may already be closed by a failed commit
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staging file %s: %w", s.path, err)
	}
	log.Debug().Str("op", "fetcher/staging").Msgf("Removed staging file %s", s.path)
	return nil
}

func lockPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".lock")
}

type targetLock struct {
	flock *flock.Flock
}

// lockTarget serializes installers writing the same destination.
func lockTarget(ctx context.Context, dest string) (*targetLock, error) {
	fileLock := flock.New(lockPath(dest))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("%s is locked by another install", dest)
	}
	return &targetLock{flock: fileLock}, nil
}

func (l *targetLock) release() {
	if err := l.flock.Unlock(); err != nil {
		log.Warn().Str("op", "fetcher/lock").Err(err).Msg("Failed to unlock install target")
		return
	}
	if err := os.Remove(l.flock.Path()); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("op", "fetcher/lock").Err(err).Msg("Failed to remove lock file")
	}
}

// CleanStaging removes staging files and a stale lock left next to dest by
// an interrupted install. It refuses to touch anything while another install
// holds the lock.
func CleanStaging(dest string) ([]string, error) {
	fileLock := flock.New(lockPath(dest))
	locked, err := fileLock.TryLock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("check install lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("an install of %s is in progress", dest)
	}
	defer fileLock.Unlock()

	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		return nil, err
	}
	prefix := stagingPrefix(dest)
	var removed []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) || !strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		path := filepath.Join(filepath.Dir(dest), entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	if err := os.Remove(fileLock.Path()); err != nil && !os.IsNotExist(err) {
		return removed, err
	}
	return removed, nil
}

// IsInstalled reports whether path is a regular file with an exec bit set.
func IsInstalled(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	return info.Mode().Perm()&0o111 != 0, nil
}
