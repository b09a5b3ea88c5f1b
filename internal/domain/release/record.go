package release

import (
	"strings"
	"time"
)

// Mode is the update channel a record belongs to.
type Mode int

const (
	// ModeUnknown is used for channel values the client does not recognize.
	ModeUnknown Mode = iota
	// ModeReleaseBuild marks stable releases.
	ModeReleaseBuild
	// ModeBetaBuild marks beta releases.
	ModeBetaBuild
	// ModeAllBuilds marks records published to every channel.
	ModeAllBuilds
)

// ParseMode maps a feed channel string to a Mode.
// Unrecognized values map to ModeUnknown instead of failing.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "releasebuild", "releasebuilds", "release":
		return ModeReleaseBuild
	case "betabuild", "betabuilds", "beta":
		return ModeBetaBuild
	case "allbuilds", "allbuild", "all":
		return ModeAllBuilds
	default:
		return ModeUnknown
	}
}

// String returns the feed representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeReleaseBuild:
		return "ReleaseBuild"
	case ModeBetaBuild:
		return "BetaBuild"
	case ModeAllBuilds:
		return "AllBuilds"
	case ModeUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// Artifact is one downloadable file belonging to a record.
type Artifact struct {
	// Location is the absolute URI of the file.
	Location string
	// Size is the byte count; 0 means unknown until the server reports it.
	Size int64
	// Version is the version this specific file represents.
	Version Version
	// RestartRequired is an informational hint from the feed.
	RestartRequired bool
}

// Clone returns a copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Record is one published release.
type Record struct {
	// Version identifies the release and is unique within a catalog.
	Version Version
	// ChangeSet is the build identifier, informational only.
	ChangeSet int
	// PublishedAt is when the release was published.
	PublishedAt time.Time
	// Comments is free text shown to users.
	Comments string
	// Mode is the channel this record belongs to.
	Mode Mode
	// Files are the downloadable artifacts in declared order.
	Files []*Artifact
	// PostInstallCommands run verbatim after unpacking, in declared order.
	PostInstallCommands []string
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r

	cloned.Files = make([]*Artifact, 0, len(r.Files))
	for _, file := range r.Files {
		cloned.Files = append(cloned.Files, file.Clone())
	}

	cloned.PostInstallCommands = append([]string(nil), r.PostInstallCommands...)

	return &cloned
}

// PendingFiles returns the files strictly newer than running, in declared order.
// A release may ship a partial update where only some files changed.
func (r *Record) PendingFiles(running Version) []*Artifact {
	pending := make([]*Artifact, 0, len(r.Files))

	for _, file := range r.Files {
		if file.Version.GreaterThan(running) {
			pending = append(pending, file)
		}
	}

	return pending
}

// UpdateAvailable reports whether the record carries anything newer than running:
// either the record version itself or any of its file versions.
func UpdateAvailable(record *Record, running Version) bool {
	if record == nil {
		return false
	}

	if record.Version.GreaterThan(running) {
		return true
	}

	for _, file := range record.Files {
		if file.Version.GreaterThan(running) {
			return true
		}
	}

	return false
}
