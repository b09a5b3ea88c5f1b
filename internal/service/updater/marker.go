package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/app-updater/internal/logger"
)

const (
	// MarkerFilename marks that an update run is in progress to avoid parallel execution.
	MarkerFilename = "app-updater-run.marker"

	// MarkerLifetime is the period after which a stale marker is ignored.
	MarkerLifetime = 15 * time.Minute
)

// ErrAlreadyRunning is returned when a fresh marker exists.
var ErrAlreadyRunning = errors.New("the updater is already running")

// AcquireMarker creates the marker file at path. A marker older than
// MarkerLifetime is treated as left over from a crashed run and replaced.
// The returned function removes the marker.
func AcquireMarker(ctx context.Context, path string) (func(), error) {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create marker directory: %w", err)
	}

	err := createMarker(path)
	if errors.Is(err, os.ErrExist) {
		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) <= MarkerLifetime {
			return nil, ErrAlreadyRunning
		}

		logger.InfoKV(ctx, "The update marker is too old, replacing it", "path", path)

		if err = os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}

		err = createMarker(path)
	}

	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyRunning
		}

		return nil, fmt.Errorf("create marker: %w", err)
	}

	return func() {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove update marker", "path", path, "error", removeErr)
		}
	}, nil
}

func createMarker(path string) error {
	marker, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintf(marker, "%d\n", os.Getpid()); err != nil {
		_ = marker.Close()
		return err
	}

	return marker.Close()
}
