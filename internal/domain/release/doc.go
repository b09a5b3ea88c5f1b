// Package release contains the domain types describing published updates.
//
// It defines Version (four-part ordered version), Record (one release entry
// of a feed), Artifact (one downloadable file of a record) and Catalog, the
// version-keyed set of records used to answer "what is newest" and
// "what matches version V".
package release
