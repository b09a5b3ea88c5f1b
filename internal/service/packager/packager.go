package packager

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/service/feed"
)

// DefaultFileMode is used for the written feed document.
const DefaultFileMode os.FileMode = 0o644

var (
	errFeedPathRequired = errors.New("feed path must be provided")
	errFilesRequired    = errors.New("at least one file URL must be provided")
	errUnknownMode      = errors.New("unknown build mode")
	errNotAbsoluteURL   = errors.New("file URL must be absolute")
	errNoRoot           = errors.New("feed document has no root element")
	errNotPublished     = errors.New("entry is missing after writing the feed")
)

// Options contains inputs for the packager entry point.
type Options struct {
	// FeedPath is the feed document to update or create.
	FeedPath string
	// Version is the published version.
	Version string
	// FileURLs are the absolute download locations, in install order.
	FileURLs []string
	// Mode is the build channel: release, beta or all. Release when empty.
	Mode string
	// Comments is the optional release note.
	Comments string
	// Commands are post-install commands, in order.
	Commands []string
	// FileVersion overrides the version of every file; Version when empty.
	FileVersion string
	// SizeFrom is a directory holding local copies used to measure file sizes.
	SizeFrom string
	// Restart marks the files as requiring an application restart.
	Restart bool
	// ChangeSet is the optional source revision number.
	ChangeSet int
	// Namespace is used when a new document is created.
	Namespace string
	// PublishedAt defaults to the current time.
	PublishedAt time.Time
}

// packager holds one publishing run.
type packager struct {
	opts   *Options
	record *release.Record
	doc    *etree.Document
}

// Run adds the entry described by opts to the feed document.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "feed-packager")

	pkg, err := newPackager(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	if err = pkg.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.InfoKV(ctx, "Feed updated", "path", opts.FeedPath, "version", pkg.record.Version.String())

	return nil
}

// newPackager validates the options and loads the feed document.
func newPackager(ctx context.Context, opts *Options) (*packager, error) {
	record, err := buildRecord(opts)
	if err != nil {
		return nil, err
	}

	doc, err := loadDocument(ctx, opts.FeedPath, opts.Namespace)
	if err != nil {
		return nil, err
	}

	return &packager{
		opts:   opts,
		record: record,
		doc:    doc,
	}, nil
}

// Run replaces the entry of the version, writes the document and verifies it parses back.
func (p *packager) Run(ctx context.Context) error {
	root := p.doc.Root()

	if removed := feed.RemoveEntries(root, p.record.Version); removed > 0 {
		logger.InfoKV(ctx, "Replacing published entry", "version", p.record.Version.String(), "removed", removed)
	}

	feed.AppendEntry(root, p.record)
	p.doc.Indent(2)

	if err := p.doc.WriteToFile(p.opts.FeedPath); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}

	if err := os.Chmod(p.opts.FeedPath, DefaultFileMode); err != nil {
		return fmt.Errorf("chmod feed: %w", err)
	}

	if err := p.verify(ctx); err != nil {
		return err
	}

	p.printNextSteps(ctx)

	return nil
}

// verify parses the written document the way clients do.
func (p *packager) verify(ctx context.Context) error {
	file, err := os.Open(filepath.Clean(p.opts.FeedPath))
	if err != nil {
		return fmt.Errorf("open feed: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	records, err := feed.Parse(ctx, file)
	if err != nil {
		return fmt.Errorf("verify feed: %w", err)
	}

	for _, record := range records {
		if record.Version.Equal(p.record.Version) {
			return nil
		}
	}

	return fmt.Errorf("%s: %w", p.record.Version, errNotPublished)
}

// printNextSteps logs which files must be uploaded where.
func (p *packager) printNextSteps(ctx context.Context) {
	var builder strings.Builder

	builder.WriteString("Upload the following files before publishing ")
	builder.WriteString(p.opts.FeedPath)
	builder.WriteString(":")

	for _, artifact := range p.record.Files {
		builder.WriteString("\n")
		builder.WriteString(artifact.Location)
	}

	logger.Info(ctx, builder.String())
}

// buildRecord turns the options into the published record.
func buildRecord(opts *Options) (*release.Record, error) {
	switch {
	case opts.FeedPath == "":
		return nil, errFeedPathRequired
	case len(opts.FileURLs) == 0:
		return nil, errFilesRequired
	}

	version, err := release.ParseVersion(opts.Version)
	if err != nil {
		return nil, err
	}

	fileVersion := version
	if opts.FileVersion != "" {
		if fileVersion, err = release.ParseVersion(opts.FileVersion); err != nil {
			return nil, fmt.Errorf("file version: %w", err)
		}
	}

	mode := release.ModeReleaseBuild
	if opts.Mode != "" {
		if mode = release.ParseMode(opts.Mode); mode == release.ModeUnknown {
			return nil, fmt.Errorf("%w: %s", errUnknownMode, opts.Mode)
		}
	}

	publishedAt := opts.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC().Truncate(time.Second)
	}

	record := &release.Record{
		Version:             version,
		ChangeSet:           opts.ChangeSet,
		PublishedAt:         publishedAt,
		Comments:            opts.Comments,
		Mode:                mode,
		Files:               make([]*release.Artifact, 0, len(opts.FileURLs)),
		PostInstallCommands: append([]string(nil), opts.Commands...),
	}

	for _, location := range opts.FileURLs {
		artifact, err := buildArtifact(location, fileVersion, opts)
		if err != nil {
			return nil, err
		}

		record.Files = append(record.Files, artifact)
	}

	return record, nil
}

func buildArtifact(location string, version release.Version, opts *Options) (*release.Artifact, error) {
	parsed, err := url.ParseRequestURI(location)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%s: %w", location, errNotAbsoluteURL)
	}

	artifact := &release.Artifact{
		Location:        location,
		Version:         version,
		RestartRequired: opts.Restart,
	}

	if opts.SizeFrom == "" {
		return artifact, nil
	}

	localPath := filepath.Join(opts.SizeFrom, path.Base(parsed.Path))

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("measure %s: %w", location, err)
	}

	artifact.Size = info.Size()

	return artifact, nil
}

// loadDocument reads an existing feed or creates an empty one.
func loadDocument(ctx context.Context, feedPath, namespace string) (*etree.Document, error) {
	if _, err := os.Stat(feedPath); errors.Is(err, os.ErrNotExist) {
		logger.InfoKV(ctx, "Creating new feed", "path", feedPath)

		return feed.NewDocument(namespace), nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(feedPath); err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	if doc.Root() == nil {
		return nil, fmt.Errorf("%s: %w", feedPath, errNoRoot)
	}

	return doc, nil
}
