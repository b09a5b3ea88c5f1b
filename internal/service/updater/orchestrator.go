package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/app-updater/internal/config"
	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/service/downloader"
	"github.com/oshokin/app-updater/internal/service/feed"
	"github.com/oshokin/app-updater/internal/service/script"
)

var (
	// ErrInvalidState is logged when an operation is requested in the wrong state.
	ErrInvalidState = errors.New("invalid orchestrator state")
	// ErrCancelled wraps failures caused by context cancellation.
	ErrCancelled = errors.New("update cancelled")
	// ErrNoFeed is returned when the requested channel has no feed configured.
	ErrNoFeed = errors.New("no feed configured for channel")

	errDownloadDirRequired = errors.New("download directory must be provided")
)

// FeedFetcher loads the records of a feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, uri string) ([]*release.Record, error)
}

// ArtifactDownloader saves one artifact into a directory.
type ArtifactDownloader interface {
	Download(ctx context.Context, session *downloader.Session, artifact *release.Artifact, dir string) (string, error)
}

// ScriptBuilder writes the install script.
type ScriptBuilder interface {
	Build(path string, artifacts, commands []string, ownerPath string) error
}

// CheckRecorder stores the outcome of a check.
type CheckRecorder interface {
	Save(ctx context.Context, check *release.Check) error
}

// Options configure an Orchestrator.
type Options struct {
	// RunningVersion is the version of the owner application.
	RunningVersion release.Version
	// OwnerPath is relaunched by the install script; empty skips the relaunch.
	OwnerPath string
	// Feeds maps channels to feed URIs.
	Feeds config.Feeds
	// FeedURL overrides the channel feeds when set.
	FeedURL string
	// DownloadDir receives one sub-directory per download session.
	DownloadDir string
	// ScriptPath is where the install script is written; defaults into DownloadDir.
	ScriptPath string
	// Extractor overrides the executable called by the install script.
	Extractor string
	// HTTPClient is used by the default feed client and downloader.
	HTTPClient *http.Client
	// Feed overrides the feed client.
	Feed FeedFetcher
	// Downloader overrides the artifact downloader.
	Downloader ArtifactDownloader
	// Builder overrides the install script builder.
	Builder ScriptBuilder
	// Recorder optionally stores every check outcome.
	Recorder CheckRecorder
	// Listener receives events; NopListener when nil.
	Listener Listener
	// Dispatch runs listener calls; synchronous when nil.
	Dispatch func(func())
}

// Orchestrator sequences feed check, download and script building.
type Orchestrator struct {
	running     release.Version
	ownerPath   string
	feeds       config.Feeds
	feedURL     string
	downloadDir string
	scriptPath  string

	feed       FeedFetcher
	downloader ArtifactDownloader
	builder    ScriptBuilder
	recorder   CheckRecorder
	listener   Listener
	dispatch   func(func())

	// mu guards the fields below.
	mu      sync.Mutex
	state   State
	catalog *release.Catalog
	found   *release.Record
}

// New creates an orchestrator, filling collaborators that are not provided.
func New(opts *Options) (*Orchestrator, error) {
	if opts.DownloadDir == "" {
		return nil, errDownloadDirRequired
	}

	o := &Orchestrator{
		running:     opts.RunningVersion,
		ownerPath:   opts.OwnerPath,
		feeds:       opts.Feeds,
		feedURL:     opts.FeedURL,
		downloadDir: opts.DownloadDir,
		scriptPath:  opts.ScriptPath,
		feed:        opts.Feed,
		downloader:  opts.Downloader,
		builder:     opts.Builder,
		recorder:    opts.Recorder,
		listener:    opts.Listener,
		dispatch:    opts.Dispatch,
		state:       StateIdle,
		catalog:     release.NewCatalog(),
	}

	if o.feed == nil {
		o.feed = feed.NewClient(opts.HTTPClient)
	}

	if o.downloader == nil {
		o.downloader = downloader.New(opts.HTTPClient)
	}

	dialect := script.DefaultDialect()

	if o.builder == nil {
		builder, err := script.NewBuilder()
		if err != nil {
			return nil, err
		}

		if opts.Extractor != "" {
			builder.Extractor = opts.Extractor
		}

		if opts.OwnerPath != "" {
			builder.WaitFor = filepath.Base(opts.OwnerPath)
		}

		o.builder = builder
	}

	if builder, ok := o.builder.(*script.Builder); ok {
		dialect = builder.Dialect
	}

	if o.scriptPath == "" {
		o.scriptPath = script.DefaultPath(o.downloadDir, dialect)
	}

	if o.listener == nil {
		o.listener = NopListener{}
	}

	if o.dispatch == nil {
		o.dispatch = func(f func()) { f() }
	}

	return o, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// ScriptPath returns where the install script is written.
func (o *Orchestrator) ScriptPath() string {
	return o.scriptPath
}

// FoundVersion returns the version found by the last check, if any.
func (o *Orchestrator) FoundVersion() (release.Version, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.found == nil {
		return release.Version{}, false
	}

	return o.found.Version, true
}

// Records returns the catalog built by the last check in version order.
func (o *Orchestrator) Records() []*release.Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.catalog.Records()
}

// FeedFor returns the feed URI used for mode. ModeUnknown selects the release feed.
func (o *Orchestrator) FeedFor(mode release.Mode) string {
	if o.feedURL != "" {
		return o.feedURL
	}

	switch mode {
	case release.ModeBetaBuild:
		return o.feeds.Beta
	case release.ModeAllBuilds:
		return o.feeds.All
	case release.ModeReleaseBuild, release.ModeUnknown:
		return o.feeds.Release
	default:
		return o.feeds.Release
	}
}

// CheckForUpdate fetches the feed of mode, rebuilds the catalog and decides
// whether the latest record is newer than the running version. It is a
// logged no-op while another operation is in progress.
func (o *Orchestrator) CheckForUpdate(ctx context.Context, mode release.Mode) error {
	ctx = logger.WithFields(ctx, "channel", mode.String(), "running", o.running.String())

	check := &release.Check{
		Channel:        mode,
		RunningVersion: o.running,
		FeedURL:        o.FeedFor(mode),
	}

	o.mu.Lock()
	if o.state.busy() {
		current := o.state
		o.mu.Unlock()

		logger.WarnKV(ctx, "Check ignored", "state", current.String(), "error", ErrInvalidState)

		return nil
	}

	o.catalog.Reset()
	o.found = nil

	// The busy state is claimed under the same lock as the check above.
	o.state = StateCheckingFeed
	o.mu.Unlock()

	uri := check.FeedURL
	if uri == "" {
		return o.failCheck(ctx, check, fmt.Errorf("%w: %s", ErrNoFeed, mode))
	}

	logger.InfoKV(ctx, "Checking for updates", "feed", uri)

	records, err := o.feed.Fetch(ctx, uri)
	if err != nil {
		return o.failCheck(ctx, check, err)
	}

	o.mu.Lock()

	for _, record := range records {
		if !o.catalog.Add(record) {
			logger.DebugKV(ctx, "Duplicate record ignored", "version", record.Version.String())
		}
	}

	o.catalog.SortByVersion()
	latest, ok := o.catalog.Latest()

	if !ok || !release.UpdateAvailable(latest, o.running) {
		o.state = StateNoUpdate
		o.mu.Unlock()

		if ok {
			check.FoundVersion = latest.Version
		}

		check.Outcome = release.OutcomeUpToDate
		o.record(ctx, check)
		logger.InfoKV(ctx, "No update available", "records", len(records))

		return nil
	}

	o.found = latest
	o.state = StateUpdateFound
	o.mu.Unlock()

	check.FoundVersion = latest.Version
	check.Outcome = release.OutcomeUpdateFound
	o.record(ctx, check)

	logger.InfoKV(ctx, "Update found", "version", latest.Version.String())

	version := latest.Version
	o.dispatch(func() { o.listener.OnUpdateFound(version) })

	return nil
}

// DownloadUpdates downloads the pending artifacts of version and writes the
// install script. It is a logged no-op unless version is the one the last
// check found.
func (o *Orchestrator) DownloadUpdates(ctx context.Context, version release.Version) error {
	ctx = logger.WithKV(ctx, "version", version.String())

	o.mu.Lock()

	record, err := o.downloadableRecord(version)
	if err != nil {
		o.mu.Unlock()
		logger.WarnKV(ctx, "Download ignored", "error", err)

		return nil
	}

	o.state = StateDownloading
	o.mu.Unlock()

	session := downloader.NewSession(func(progress downloader.Progress) {
		o.dispatch(func() { o.listener.OnProgress(progress) })
	})

	ctx = logger.WithKV(ctx, "session", session.ID)
	sessionDir := filepath.Join(o.downloadDir, session.ID)
	pending := record.PendingFiles(o.running)

	logger.InfoKV(ctx, "Downloading update", "artifacts", len(pending), "directory", sessionDir)

	for _, artifact := range pending {
		if ctx.Err() != nil {
			return o.fail(ctx, ctx.Err())
		}

		if _, err = o.downloader.Download(ctx, session, artifact, sessionDir); err != nil {
			return o.fail(ctx, err)
		}
	}

	paths := session.Files()
	o.dispatch(func() { o.listener.OnCompleted(paths) })

	if ctx.Err() != nil {
		return o.fail(ctx, ctx.Err())
	}

	o.setState(StateScriptBuilding)

	if err = o.builder.Build(o.scriptPath, paths, record.PostInstallCommands, o.ownerPath); err != nil {
		return o.fail(ctx, err)
	}

	o.setState(StateReady)
	logger.InfoKV(ctx, "Install script created", "path", o.scriptPath, "bytes", session.TotalBytes())

	scriptPath := o.scriptPath
	o.dispatch(func() { o.listener.OnScriptCreated(scriptPath) })

	return nil
}

// Run checks for an update on a worker goroutine and, when autoDownload is
// set and an update is found, downloads it. The channel receives the final
// error, nil when there was nothing to do, and is then closed.
func (o *Orchestrator) Run(ctx context.Context, mode release.Mode, autoDownload bool) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		if err := o.CheckForUpdate(ctx, mode); err != nil {
			done <- err
			return
		}

		version, found := o.FoundVersion()
		if !autoDownload || !found {
			done <- nil
			return
		}

		done <- o.DownloadUpdates(ctx, version)
	}()

	return done
}

// downloadableRecord must be called with mu held.
func (o *Orchestrator) downloadableRecord(version release.Version) (*release.Record, error) {
	if o.state != StateUpdateFound || o.found == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, o.state)
	}

	if !o.found.Version.Equal(version) {
		return nil, fmt.Errorf("%w: version %s was not found by the last check", ErrInvalidState, version)
	}

	record, ok := o.catalog.Lookup(version)
	if !ok {
		return nil, fmt.Errorf("%w: version %s is not in the catalog", ErrInvalidState, version)
	}

	return record, nil
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// fail moves to StateFailed and reports err exactly once.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil && !errors.Is(err, ErrCancelled) {
		err = fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	o.setState(StateFailed)
	logger.ErrorKV(ctx, "Update failed", "error", err)

	o.dispatch(func() { o.listener.OnFailed(err) })

	return err
}

// failCheck fails a check, leaving the catalog empty and recording the outcome.
func (o *Orchestrator) failCheck(ctx context.Context, check *release.Check, err error) error {
	o.mu.Lock()
	o.catalog.Reset()
	o.mu.Unlock()

	err = o.fail(ctx, err)

	check.Outcome = release.OutcomeFailed
	check.Error = err.Error()
	o.record(ctx, check)

	return err
}

func (o *Orchestrator) record(ctx context.Context, check *release.Check) {
	if o.recorder == nil {
		return
	}

	check.CheckedAt = time.Now().UTC()

	if err := o.recorder.Save(ctx, check); err != nil {
		logger.WarnKV(ctx, "Unable to record check", "error", err)
	}
}
