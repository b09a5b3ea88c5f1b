package updater

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/oshokin/app-updater/internal/config"
	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/repository/state"
	"github.com/oshokin/app-updater/internal/service/common"
	"github.com/oshokin/app-updater/internal/service/feed"
	"github.com/oshokin/app-updater/internal/version"
)

var errConfigRequired = errors.New("configuration must be provided")

// CommandOptions are inputs of the check and run commands.
type CommandOptions struct {
	// Config is the validated configuration.
	Config *config.Config
	// RunningVersion is the version of the owner application.
	RunningVersion release.Version
	// Download continues with download and script building when an update is found.
	Download bool
	// Listener receives events.
	Listener Listener
}

// Outcome summarizes a command run.
type Outcome struct {
	// Found reports whether a newer version was found.
	Found bool
	// Version is the found version.
	Version release.Version
	// ScriptPath is set when the install script was written.
	ScriptPath string
}

// RunCommand wires the orchestrator from configuration and runs one check,
// followed by the download when requested. Runs that download hold the
// marker file in the download directory.
func RunCommand(ctx context.Context, opts *CommandOptions) (*Outcome, error) {
	ctx = logger.WithName(ctx, "app-updater")

	cfg := opts.Config
	if cfg == nil {
		return nil, errConfigRequired
	}

	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	if opts.Download {
		releaseMarker, markerErr := AcquireMarker(ctx, filepath.Join(cfg.DownloadDir, MarkerFilename))
		if markerErr != nil {
			return nil, markerErr
		}

		defer releaseMarker()
	}

	httpClient, err := common.NewHTTPClient(
		common.WithProxy(cfg.Proxy),
		common.WithUserAgent(version.UserAgent(opts.RunningVersion.String())),
		common.WithHeaderTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, err
	}

	orchestrator, err := New(&Options{
		RunningVersion: opts.RunningVersion,
		OwnerPath:      cfg.OwnerPath,
		Feeds:          cfg.Feeds,
		FeedURL:        cfg.FeedURL,
		DownloadDir:    cfg.DownloadDir,
		ScriptPath:     cfg.ScriptPath,
		HTTPClient:     httpClient,
		Feed:           feed.NewClient(httpClient, feed.WithTimeout(cfg.Timeout)),
		Recorder:       state.NewFileRepository(cfg.StateFile),
		Listener:       opts.Listener,
	})
	if err != nil {
		return nil, err
	}

	if err = <-orchestrator.Run(ctx, mode, opts.Download); err != nil {
		return nil, err
	}

	outcome := &Outcome{}
	outcome.Version, outcome.Found = orchestrator.FoundVersion()

	if orchestrator.State() == StateReady {
		outcome.ScriptPath = orchestrator.ScriptPath()
	}

	return outcome, nil
}
