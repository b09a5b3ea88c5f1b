// Package state persists the outcome of the last update check.
//
// The FileRepository stores and loads a release.Check as YAML on disk and
// exposes a Repository interface that the orchestrator and the status
// command depend on.
package state
