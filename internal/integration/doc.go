// Package integration holds end-to-end tests that publish a feed, serve it
// over HTTP and run the updater against it.
package integration
