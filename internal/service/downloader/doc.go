// Package downloader retrieves update artifacts one at a time into a
// temporary directory and reports byte-level progress after every chunk.
package downloader
