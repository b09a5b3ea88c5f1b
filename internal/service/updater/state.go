package updater

// State is the position of the orchestrator in the update workflow.
type State int

const (
	// StateIdle is the initial state.
	StateIdle State = iota
	// StateCheckingFeed means the feed request is in flight.
	StateCheckingFeed
	// StateNoUpdate means the feed offered nothing newer.
	StateNoUpdate
	// StateUpdateFound means a newer record was found and can be downloaded.
	StateUpdateFound
	// StateDownloading means artifacts are being fetched.
	StateDownloading
	// StateScriptBuilding means the install script is being written.
	StateScriptBuilding
	// StateReady means the script exists and the caller may run it.
	StateReady
	// StateFailed means the last operation failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCheckingFeed:
		return "checking-feed"
	case StateNoUpdate:
		return "no-update"
	case StateUpdateFound:
		return "update-found"
	case StateDownloading:
		return "downloading"
	case StateScriptBuilding:
		return "script-building"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// busy reports whether an operation is in progress.
func (s State) busy() bool {
	return s == StateCheckingFeed || s == StateDownloading || s == StateScriptBuilding
}
