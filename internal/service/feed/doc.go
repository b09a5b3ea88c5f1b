// Package feed fetches and parses the remote XML document listing releases.
//
// The root element declares one or more XML namespaces. A namespace lookup is
// built from its xmlns attributes and used to locate the repeated Update
// elements. Each entry is decoded on its own: a malformed entry is logged and
// skipped so the rest of the feed stays usable.
package feed
