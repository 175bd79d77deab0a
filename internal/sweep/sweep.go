// Package sweep removes deliverables that outlived their retention.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Sweeper deletes old regular files from one directory.
type Sweeper struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// New creates a Sweeper for dir on fs.
func New(fs afero.Fs, dir string) *Sweeper {
	return &Sweeper{fs: fs, dir: dir, now: time.Now}
}

// Sweep removes regular files in the directory whose modification time is
// more than maxAge ago. Subdirectories are left alone. A missing directory
// sweeps nothing. Failures to remove single files are joined into the
// returned error without stopping the sweep.
func (s *Sweeper) Sweep(maxAge time.Duration) (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	cutoff := s.now().Add(-maxAge)

	var (
		removed int
		errs    []error
	)
	for _, fi := range entries {
		if !fi.Mode().IsRegular() || !fi.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, fi.Name())
		if err := s.fs.Remove(path); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", path, err))
			continue
		}
		removed++
		slog.Debug("swept expired file", "path", path, "age", s.now().Sub(fi.ModTime()).Round(time.Second))
	}

	return removed, errors.Join(errs...)
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, every, maxAge time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		n, err := s.Sweep(maxAge)
		if err != nil {
			slog.WarnContext(ctx, "sweep incomplete", "dir", s.dir, "error", err)
		}
		if n > 0 {
			slog.InfoContext(ctx, "swept expired files", "dir", s.dir, "removed", n)
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
		}
	}
}
