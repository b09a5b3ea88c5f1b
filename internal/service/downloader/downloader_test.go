package downloader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/app-updater/internal/domain/release"
)

func newArtifact(location string, size int64) *release.Artifact {
	return &release.Artifact{
		Location: location,
		Size:     size,
		Version:  release.MustParseVersion("1.2"),
	}
}

// TestDownload_ProgressReachesHundred streams a multi-chunk body and checks progress invariants.
func TestDownload_ProgressReachesHundred(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte("x"), 3*ChunkSize+100)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	defer server.Close()

	var events []Progress

	session := NewSession(func(p Progress) {
		events = append(events, p)
	})

	artifact := newArtifact(server.URL+"/files/app.zip", 0)
	dir := filepath.Join(t.TempDir(), "nested")

	path, err := New(server.Client()).Download(context.Background(), session, artifact, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "app.zip"), path)
	require.Equal(t, int64(len(body)), artifact.Size, "size learned from Content-Length")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, body, contents)

	require.NotEmpty(t, events)

	previous := -1

	for i, event := range events {
		require.Same(t, artifact, event.Artifact)
		require.GreaterOrEqual(t, event.Percent, previous)
		require.Equal(t, event.ArtifactBytes, event.SessionBytes)

		if event.ArtifactBytes == artifact.Size {
			require.Equal(t, 100, event.Percent)
			require.Equal(t, len(events)-1, i)
		} else {
			require.Less(t, event.Percent, 100)
		}

		previous = event.Percent
	}

	require.Equal(t, int64(len(body)), session.TotalBytes())
	require.Equal(t, []string{path}, session.Files())
}

// TestDownload_ContentDisposition uses the suggested file name and accumulates session bytes.
func TestDownload_ContentDisposition(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/get" {
			w.Header().Set("Content-Disposition", `attachment; filename="update-1.2.zip"`)
		}

		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	dir := t.TempDir()
	downloader := New(server.Client())

	var last Progress

	session := NewSession(func(p Progress) { last = p })

	path, err := downloader.Download(context.Background(), session, newArtifact(server.URL+"/get?id=7", 10), dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "update-1.2.zip"), path)

	path, err = downloader.Download(context.Background(), session, newArtifact(server.URL+"/other.bin", 10), dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "other.bin"), path)

	require.Equal(t, int64(20), last.SessionBytes)
	require.Equal(t, int64(10), last.ArtifactBytes)
	require.Equal(t, 100, last.Percent)
	require.Len(t, session.Files(), 2)
}

// TestDownload_ExistingDestination refuses to overwrite a file from an earlier download.
func TestDownload_ExistingDestination(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.zip"), []byte("old"), 0o600))

	session := NewSession(nil)

	_, err := New(server.Client()).Download(context.Background(), session, newArtifact(server.URL+"/app.zip", 0), dir)
	require.ErrorIs(t, err, ErrDestinationExists)
	require.Empty(t, session.Files())

	contents, err := os.ReadFile(filepath.Join(dir, "app.zip"))
	require.NoError(t, err)
	require.Equal(t, "old", string(contents))
}

// TestDownload_TransportError reports bad statuses without creating files.
func TestDownload_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dir := t.TempDir()

	_, err := New(nil).Download(context.Background(), NewSession(nil), newArtifact(server.URL+"/app.zip", 0), dir)
	require.ErrorIs(t, err, ErrTransport)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestDownload_Cancelled stops before touching the network when the context is done.
func TestDownload_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Download(ctx, NewSession(nil), newArtifact("https://example.invalid/app.zip", 0), t.TempDir())
	require.ErrorIs(t, err, ErrCancelled)
}

// TestDownload_CancelledBetweenChunks cancels from the progress callback.
func TestDownload_CancelledBetweenChunks(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte("y"), 4*ChunkSize)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := NewSession(func(Progress) { cancel() })

	_, err := New(server.Client()).Download(ctx, session, newArtifact(server.URL+"/big.bin", 0), t.TempDir())
	require.ErrorIs(t, err, ErrCancelled)
	require.Empty(t, session.Files())
}

// TestFileName covers header, URI and fallback naming.
func TestFileName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a.zip", FileName("attachment; filename=a.zip", "https://x/y/b.zip", 0))
	require.Equal(t, "a.zip", FileName(`attachment; filename="a.zip"; size=10`, "https://x/b.zip", 0))
	require.Equal(t, "evil.zip", FileName(`filename="..\..\evil.zip"`, "https://x/b.zip", 0))
	require.Equal(t, "b.zip", FileName("", "https://x/y/b.zip?token=1", 0))
	require.Equal(t, "b.zip", FileName("attachment", "https://x/b.zip", 0))
	require.Equal(t, "artifact-3", FileName("", "https://x/", 3))
}

// TestPercent checks truncation, unknown size and the cap.
func TestPercent(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Percent(10, 0))
	require.Equal(t, 0, Percent(0, 1000))
	require.Equal(t, 99, Percent(999, 1000))
	require.Equal(t, 100, Percent(1000, 1000))
	require.Equal(t, 100, Percent(1200, 1000))
	require.Equal(t, 33, Percent(1, 3))
}
