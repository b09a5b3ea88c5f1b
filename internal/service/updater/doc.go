// Package updater drives one update from feed check to install script.
//
// The Orchestrator is a small state machine: it resolves the channel feed,
// rebuilds the version catalog, decides whether a newer release exists,
// downloads the pending artifacts in declared order and writes the install
// script. It never runs the script; that is left to the caller. Events are
// reported through a Listener on the context the caller chooses.
package updater
