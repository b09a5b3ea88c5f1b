package updater

import (
	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/service/downloader"
)

// Listener receives orchestrator events.
type Listener interface {
	// OnUpdateFound is called once a check finds a newer version.
	OnUpdateFound(version release.Version)
	// OnProgress is called after every downloaded chunk.
	OnProgress(progress downloader.Progress)
	// OnCompleted is called when all pending artifacts are downloaded,
	// also when there was nothing to download.
	OnCompleted(paths []string)
	// OnScriptCreated is called with the path of the written install script.
	OnScriptCreated(path string)
	// OnFailed is called once per failed operation.
	OnFailed(err error)
}

// NopListener ignores every event. Embed it to implement only some methods.
type NopListener struct{}

// OnUpdateFound implements Listener.
func (NopListener) OnUpdateFound(release.Version) {}

// OnProgress implements Listener.
func (NopListener) OnProgress(downloader.Progress) {}

// OnCompleted implements Listener.
func (NopListener) OnCompleted([]string) {}

// OnScriptCreated implements Listener.
func (NopListener) OnScriptCreated(string) {}

// OnFailed implements Listener.
func (NopListener) OnFailed(error) {}
