// Package script writes the installation script that applies a downloaded
// update: unpack every artifact, run the feed's post-install commands and
// relaunch the owner application. Building is pure formatting plus one
// file write; nothing is executed here.
package script
