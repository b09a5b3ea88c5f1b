// Package packager publishes releases into an update feed.
//
// It adds an Update entry for a version to a feed document, creating the
// document when it does not exist yet and replacing any entry already
// published for the same version. File sizes can be measured from local
// copies of the artifacts before they are uploaded.
package packager
