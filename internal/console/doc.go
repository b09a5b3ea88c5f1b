// Package console prints orchestrator events for the command line.
package console
