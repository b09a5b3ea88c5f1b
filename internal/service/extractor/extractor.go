package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/app-updater/internal/logger"
)

const (
	// DefaultFileMode is used for files whose archive entry carries no mode.
	DefaultFileMode os.FileMode = 0o755

	// DefaultDirMode is used for directories created during extraction.
	DefaultDirMode os.FileMode = 0o755

	// DefaultWaitTimeout bounds the wait for the owner process to exit.
	DefaultWaitTimeout = 30 * time.Second
)

var (
	errArchiveRequired = errors.New("archive path must be provided")
	errTargetRequired  = errors.New("target directory must be provided")
	// ErrUnsafePath is returned for archive entries escaping the target directory.
	ErrUnsafePath = errors.New("archive entry escapes target directory")
)

// Options are inputs accepted by the extractor entry point.
type Options struct {
	// Archive is the downloaded artifact.
	Archive string
	// TargetDir receives the unpacked files.
	TargetDir string
	// WaitFor is an optional process name to wait for before extracting.
	WaitFor string
	// WaitTimeout bounds the wait; DefaultWaitTimeout when zero.
	WaitTimeout time.Duration
	// ForceKill terminates WaitFor processes still running after the timeout.
	ForceKill bool
}

// Run waits for the owner process if asked and extracts the archive.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "extractor")

	switch {
	case opts.Archive == "":
		return errArchiveRequired
	case opts.TargetDir == "":
		return errTargetRequired
	}

	if opts.WaitFor != "" {
		timeout := opts.WaitTimeout
		if timeout <= 0 {
			timeout = DefaultWaitTimeout
		}

		if err := WaitForExit(ctx, opts.WaitFor, timeout, opts.ForceKill); err != nil {
			return fmt.Errorf("wait for %s: %w", opts.WaitFor, err)
		}
	}

	files, err := Extract(ctx, opts.Archive, opts.TargetDir)
	if err != nil {
		logger.ErrorKV(ctx, "Extraction failed", "archive", opts.Archive, "error", err)
		return err
	}

	logger.InfoKV(ctx, "Extraction completed", "archive", opts.Archive, "files", len(files))

	return nil
}

// Extract unpacks archive into targetDir and returns the written paths.
// A file that is not a zip archive is placed into targetDir under its own name.
func Extract(ctx context.Context, archive, targetDir string) ([]string, error) {
	if err := os.MkdirAll(targetDir, DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create target directory: %w", err)
	}

	reader, err := zip.OpenReader(filepath.Clean(archive))
	if errors.Is(err, zip.ErrFormat) {
		return extractPlain(ctx, archive, targetDir)
	}

	if errors.Is(err, zip.ErrInsecurePath) {
		_ = reader.Close()

		return nil, fmt.Errorf("%s: %w", archive, ErrUnsafePath)
	}

	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	written := make([]string, 0, len(reader.File))

	for _, entry := range reader.File {
		if err = ctx.Err(); err != nil {
			return written, err
		}

		target, err := entryTarget(targetDir, entry.Name)
		if err != nil {
			return written, err
		}

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, DefaultDirMode); err != nil {
				return written, fmt.Errorf("create %s: %w", target, err)
			}

			continue
		}

		if err = extractEntry(ctx, entry, target); err != nil {
			return written, err
		}

		written = append(written, target)
	}

	return written, nil
}

func extractEntry(ctx context.Context, entry *zip.File, target string) error {
	contents, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}

	defer func() {
		_ = contents.Close()
	}()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = DefaultFileMode
	}

	return applyFile(ctx, contents, target, mode)
}

func extractPlain(ctx context.Context, source, targetDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	mode := DefaultFileMode
	if info, statErr := os.Stat(source); statErr == nil && info.Mode().Perm() != 0 {
		mode = info.Mode().Perm()
	}

	target := filepath.Join(targetDir, filepath.Base(source))
	if err = applyFile(ctx, bytes.NewReader(data), target, mode); err != nil {
		return nil, err
	}

	return []string{target}, nil
}

// applyFile swaps target for the contents of r using go-update,
// which renames the old file aside before moving the new one in.
func applyFile(ctx context.Context, r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), DefaultDirMode); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}

	// go-update renames the existing file first, so it has to exist.
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, mode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", target, createErr)
		}

		_ = placeholder.Close()
	}

	logger.DebugKV(ctx, "Applying file", "target", target)

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: mode,
	}

	if err := goupdate.Apply(r, options); err != nil {
		return fmt.Errorf("apply %s: %w", target, err)
	}

	return nil
}

// entryTarget joins name under targetDir, rejecting absolute and escaping paths.
func entryTarget(targetDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}

	return filepath.Join(targetDir, cleaned), nil
}
