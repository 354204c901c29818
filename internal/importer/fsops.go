package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// CopyFile copies src to dst, replacing dst if it exists. The copy is written
// to a temporary file in dst's directory and renamed into place.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return 0, fmt.Errorf("%w: open source: %w", ErrMoveFailed, err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("%w: create directory: %w", ErrMoveFailed, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".romarr-*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file: %w", ErrMoveFailed, err)
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	size, err := io.Copy(tmp, in)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("%w: copy content: %w", ErrMoveFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("%w: sync: %w", ErrMoveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("%w: close: %w", ErrMoveFailed, err)
	}
	if info, err := in.Stat(); err == nil {
		_ = os.Chmod(tmp.Name(), info.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("%w: rename: %w", ErrMoveFailed, err)
	}
	return size, nil
}

// MoveFile relocates src to dst, creating dst's directory. An existing dst is
// removed first when overwrite is set, otherwise ErrDestinationExists is
// returned. Moves across filesystems fall back to copy and remove.
func MoveFile(src, dst string, overwrite bool) error {
	if _, err := os.Lstat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return fmt.Errorf("%w: stat source: %w", ErrMoveFailed, err)
	}
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}

	if _, err := os.Lstat(dst); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
		}
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("%w: remove existing destination: %w", ErrMoveFailed, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrMoveFailed, err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("%w: %w", ErrMoveFailed, err)
	}

	if _, err := CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		// Keep a single copy: the source is authoritative until removed.
		_ = os.Remove(dst)
		return fmt.Errorf("%w: remove source after copy: %w", ErrMoveFailed, err)
	}
	return nil
}

// move is one completed relocation, kept for rollback.
type move struct {
	from, to string
}

// moveAll moves every src into dir, keeping base names. When a move fails
// the moves already made are undone and the error is returned.
func moveAll(srcs []string, dir string, overwrite bool) ([]string, error) {
	dests := make([]string, 0, len(srcs))
	var done []move
	for _, src := range srcs {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := MoveFile(src, dst, overwrite); err != nil {
			if rbErr := rollback(done); rbErr != nil {
				return nil, errors.Join(err, rbErr)
			}
			return nil, err
		}
		if filepath.Clean(src) != filepath.Clean(dst) {
			done = append(done, move{from: src, to: dst})
		}
		dests = append(dests, dst)
	}
	return dests, nil
}

func rollback(done []move) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		m := done[i]
		if err := MoveFile(m.to, m.from, false); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", m.to, err))
		}
	}
	return errors.Join(errs...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
