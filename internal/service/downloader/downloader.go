package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/service/common"
)

const (
	// ChunkSize is the size of each read from the response body.
	ChunkSize = 32 * 1024

	// DefaultDirMode is used when creating the destination directory.
	DefaultDirMode os.FileMode = 0o755

	// DefaultFileMode is used for downloaded artifacts.
	DefaultFileMode os.FileMode = 0o644

	contentDispositionHeader = "Content-Disposition"
)

var (
	// ErrTransport wraps network and HTTP status failures.
	ErrTransport = errors.New("artifact transport error")
	// ErrDestinationExists is returned when the target file already exists.
	ErrDestinationExists = errors.New("destination file already exists")
	// ErrCancelled is returned when the context is cancelled between chunks.
	ErrCancelled = errors.New("download cancelled")
)

// Downloader fetches artifacts over HTTP(S).
type Downloader struct {
	// httpClient carries the proxy and User-Agent settings.
	httpClient *http.Client
}

// New creates a downloader using httpClient.
func New(httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Downloader{httpClient: httpClient}
}

// Download saves artifact into destinationDir and returns the local path.
// The artifact size is updated in place when it was unknown and the response
// declares a length. Progress is reported through session after every chunk.
func (d *Downloader) Download(
	ctx context.Context,
	session *Session,
	artifact *release.Artifact,
	destinationDir string,
) (string, error) {
	ctx = logger.WithFields(ctx, "session", session.ID, "artifact", artifact.Location)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	if err := os.MkdirAll(destinationDir, DefaultDirMode); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	response, err := common.Get(ctx, d.httpClient, artifact.Location)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if artifact.Size == 0 && response.ContentLength > 0 {
		artifact.Size = response.ContentLength
	}

	fileName := FileName(response.Header.Get(contentDispositionHeader), artifact.Location, len(session.files))
	outputPath := filepath.Join(destinationDir, fileName)

	logger.InfoKV(ctx, "Downloading artifact", "path", outputPath, "size", artifact.Size)

	outputFile, err := os.OpenFile(filepath.Clean(outputPath), os.O_WRONLY|os.O_CREATE|os.O_EXCL, DefaultFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", outputPath, ErrDestinationExists)
		}

		return "", fmt.Errorf("create %s: %w", outputPath, err)
	}

	written, err := copyChunks(ctx, session, artifact, outputFile, response.Body)

	if closeErr := outputFile.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", outputPath, closeErr)
	}

	if err != nil {
		return "", err
	}

	session.addFile(outputPath)
	logger.InfoKV(ctx, "Downloaded artifact", "path", outputPath, "bytes", written)

	return outputPath, nil
}

// copyChunks streams body into out, checking ctx between chunks.
func copyChunks(
	ctx context.Context,
	session *Session,
	artifact *release.Artifact,
	out io.Writer,
	body io.Reader,
) (int64, error) {
	buffer := make([]byte, ChunkSize)

	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		n, readErr := body.Read(buffer)
		if n > 0 {
			if _, err := out.Write(buffer[:n]); err != nil {
				return written, fmt.Errorf("write artifact: %w", err)
			}

			written += int64(n)
			session.addChunk(artifact, int64(n), written)
		}

		if errors.Is(readErr, io.EOF) {
			return written, nil
		}

		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
			}

			return written, fmt.Errorf("%w: read body: %w", ErrTransport, readErr)
		}
	}
}

// FileName picks the local name of an artifact. A Content-Disposition value
// wins: the text after its first "=". Otherwise the last URI path segment is
// used, and artifact-<index> when both are empty.
func FileName(contentDisposition, location string, index int) string {
	if _, suggested, found := strings.Cut(contentDisposition, "="); found {
		suggested, _, _ = strings.Cut(suggested, ";")
		suggested = strings.Trim(strings.TrimSpace(suggested), `"'`)

		if name := baseName(suggested); name != "" {
			return name
		}
	}

	if parsed, err := url.Parse(location); err == nil {
		if name := baseName(path.Base(parsed.Path)); name != "" {
			return name
		}
	}

	return "artifact-" + strconv.Itoa(index)
}

// baseName strips directories, including Windows ones, from a suggested name.
func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)

	switch name {
	case ".", "/", "..":
		return ""
	default:
		return name
	}
}
