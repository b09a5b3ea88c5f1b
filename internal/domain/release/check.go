package release

import "time"

// Outcome is the result of one feed check.
type Outcome string

const (
	// OutcomeUpToDate means the feed offered nothing newer than the running version.
	OutcomeUpToDate Outcome = "up-to-date"
	// OutcomeUpdateFound means a newer record was found.
	OutcomeUpdateFound Outcome = "update-found"
	// OutcomeFailed means the check did not complete.
	OutcomeFailed Outcome = "failed"
)

// Check describes the last feed check.
type Check struct {
	// CheckedAt is when the check finished.
	CheckedAt time.Time
	// Channel is the requested update channel.
	Channel Mode
	// FeedURL is the feed that was queried.
	FeedURL string
	// RunningVersion is the version the owner application reported.
	RunningVersion Version
	// FoundVersion is the latest version in the feed; zero when nothing was found.
	FoundVersion Version
	// Outcome summarizes the result.
	Outcome Outcome
	// Error holds the failure message when Outcome is OutcomeFailed.
	Error string
}
