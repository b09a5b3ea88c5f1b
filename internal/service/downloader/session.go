package downloader

import (
	"github.com/google/uuid"

	"github.com/oshokin/app-updater/internal/domain/release"
)

// Progress is reported after every chunk written to disk.
type Progress struct {
	// Artifact is the file in flight.
	Artifact *release.Artifact
	// ChunkBytes is the size of the chunk just written.
	ChunkBytes int64
	// ArtifactBytes is the number of bytes written for Artifact so far.
	ArtifactBytes int64
	// SessionBytes is the number of bytes written across the whole session.
	SessionBytes int64
	// Percent is ArtifactBytes relative to the artifact size, 0 while the size is unknown.
	Percent int
}

// Percent computes the truncated percentage of done out of size, capped at 100.
func Percent(done, size int64) int {
	if size <= 0 || done <= 0 {
		return 0
	}

	if done >= size {
		return 100
	}

	return int(done * 100 / size)
}

// Session is the transient state of one download batch.
type Session struct {
	// ID correlates the log lines of one batch.
	ID string
	// totalBytes is the running total across all artifacts.
	totalBytes int64
	// files are the local paths written so far, in download order.
	files []string
	// onProgress receives every progress notification; may be nil.
	onProgress func(Progress)
}

// NewSession opens a session. onProgress may be nil.
func NewSession(onProgress func(Progress)) *Session {
	return &Session{
		ID:         uuid.NewString(),
		onProgress: onProgress,
	}
}

// TotalBytes returns the bytes received across the batch.
func (s *Session) TotalBytes() int64 {
	return s.totalBytes
}

// Files returns the local paths of successfully downloaded artifacts.
func (s *Session) Files() []string {
	return append([]string(nil), s.files...)
}

func (s *Session) addChunk(artifact *release.Artifact, chunk, artifactBytes int64) {
	s.totalBytes += chunk

	if s.onProgress == nil {
		return
	}

	s.onProgress(Progress{
		Artifact:      artifact,
		ChunkBytes:    chunk,
		ArtifactBytes: artifactBytes,
		SessionBytes:  s.totalBytes,
		Percent:       Percent(artifactBytes, artifact.Size),
	})
}

func (s *Session) addFile(path string) {
	s.files = append(s.files, path)
}
