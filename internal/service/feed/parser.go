package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
)

// Element and attribute names of the feed document.
const (
	entryTag        = "Update"
	commentsTag     = "Comments"
	filesTag        = "Files"
	fileTag         = "File"
	commandsTag     = "Commands"
	commandTag      = "Command"
	updatedDateAttr = "UpdatedDate"
	modeAttr        = "Mode"
	versionAttr     = "Version"
	changeSetAttr   = "ChangeSet"
	fileSizeAttr    = "FileSize"
	locationAttr    = "Location"
	restartAttr     = "Restart"
	xmlnsAttr       = "xmlns"
)

// dateLayouts are tried in order when decoding UpdatedDate.
//
//nolint:gochecknoglobals // Read-only table.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	// ErrMalformedFeed is returned when the document itself cannot be read.
	ErrMalformedFeed = errors.New("malformed feed")
	// ErrMalformedEntry marks a single entry that could not be decoded.
	ErrMalformedEntry = errors.New("malformed feed entry")
)

// Namespaces maps prefixes declared on the root element to namespace URIs.
// The default namespace is stored under the empty prefix.
type Namespaces map[string]string

// namespacesOf collects every xmlns declaration of element.
func namespacesOf(element *etree.Element) Namespaces {
	namespaces := make(Namespaces)

	for _, attr := range element.Attr {
		switch {
		case attr.Space == "" && attr.Key == xmlnsAttr:
			namespaces[""] = attr.Value
		case attr.Space == xmlnsAttr:
			namespaces[attr.Key] = attr.Value
		}
	}

	return namespaces
}

// Resolve returns the URI bound to prefix.
func (n Namespaces) Resolve(prefix string) (string, bool) {
	uri, ok := n[prefix]

	return uri, ok
}

// Parse decodes a feed document. Malformed entries are skipped and logged;
// only an unreadable document is an error.
func Parse(ctx context.Context, r io.Reader) ([]*release.Record, error) {
	return ParseNamespace(ctx, r, "")
}

// ParseNamespace is like Parse but, when namespace is not empty, only accepts
// entries bound to that namespace URI.
func ParseNamespace(ctx context.Context, r io.Reader, namespace string) ([]*release.Record, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFeed, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedFeed)
	}

	namespaces := namespacesOf(root)
	entries := findEntries(root, namespaces, namespace)
	records := make([]*release.Record, 0, len(entries))

	for index, entry := range entries {
		record, err := decodeEntry(entry)
		if err != nil {
			logger.WarnKV(ctx, "Skipping feed entry", "index", index, "error", err)
			continue
		}

		records = append(records, record)
	}

	logger.DebugKV(ctx, "Parsed feed",
		"entries", len(entries), "records", len(records), "namespaces", len(namespaces))

	return records, nil
}

// findEntries walks the tree under root and returns Update elements whose
// prefix resolves through the lookup (or have no prefix).
func findEntries(root *etree.Element, namespaces Namespaces, namespace string) []*etree.Element {
	var entries []*etree.Element

	var walk func(element *etree.Element)

	walk = func(element *etree.Element) {
		for _, child := range element.ChildElements() {
			if child.Tag == entryTag && acceptsNamespace(child, namespaces, namespace) {
				entries = append(entries, child)
				continue
			}

			walk(child)
		}
	}

	walk(root)

	return entries
}

func acceptsNamespace(element *etree.Element, namespaces Namespaces, namespace string) bool {
	uri, declared := namespaces.Resolve(element.Space)
	if !declared && element.Space != "" {
		return false
	}

	return namespace == "" || uri == namespace
}

// decodeEntry converts one Update element into a record.
func decodeEntry(entry *etree.Element) (*release.Record, error) {
	versionText := attrValue(entry, versionAttr)
	if versionText == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEntry, versionAttr)
	}

	recordVersion, err := release.ParseVersion(versionText)
	if err != nil {
		return nil, err
	}

	record := &release.Record{
		Version:  recordVersion,
		Mode:     release.ParseMode(attrValue(entry, modeAttr)),
		Comments: strings.TrimSpace(childText(entry, commentsTag)),
	}

	if changeSet := attrValue(entry, changeSetAttr); changeSet != "" {
		if record.ChangeSet, err = strconv.Atoi(changeSet); err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrMalformedEntry, changeSetAttr, changeSet, err)
		}
	}

	if updated := attrValue(entry, updatedDateAttr); updated != "" {
		if record.PublishedAt, err = parseDate(updated); err != nil {
			return nil, err
		}
	}

	if files := childElement(entry, filesTag); files != nil {
		for _, fileElement := range childElements(files, fileTag) {
			var artifact *release.Artifact

			if artifact, err = decodeFile(fileElement, recordVersion); err != nil {
				return nil, err
			}

			record.Files = append(record.Files, artifact)
		}
	}

	if commands := childElement(entry, commandsTag); commands != nil {
		for _, commandElement := range childElements(commands, commandTag) {
			if command := commandElement.Text(); command != "" {
				record.PostInstallCommands = append(record.PostInstallCommands, command)
			}
		}
	}

	return record, nil
}

// decodeFile converts one File element. A file without its own Version
// inherits the record version.
func decodeFile(element *etree.Element, recordVersion release.Version) (*release.Artifact, error) {
	location := attrValue(element, locationAttr)

	parsed, err := url.Parse(location)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %s %q is not an absolute URI", ErrMalformedEntry, locationAttr, location)
	}

	artifact := &release.Artifact{
		Location: location,
		Version:  recordVersion,
	}

	if size := attrValue(element, fileSizeAttr); size != "" {
		if artifact.Size, err = strconv.ParseInt(size, 10, 64); err != nil || artifact.Size < 0 {
			return nil, fmt.Errorf("%w: %s %q", ErrMalformedEntry, fileSizeAttr, size)
		}
	}

	if restart := attrValue(element, restartAttr); restart != "" {
		if artifact.RestartRequired, err = strconv.ParseBool(restart); err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrMalformedEntry, restartAttr, restart, err)
		}
	}

	if fileVersion := attrValue(element, versionAttr); fileVersion != "" {
		if artifact.Version, err = release.ParseVersion(fileVersion); err != nil {
			return nil, err
		}
	}

	return artifact, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %s %q", ErrMalformedEntry, updatedDateAttr, value)
}

// attrValue returns the value of the unprefixed attribute key.
func attrValue(element *etree.Element, key string) string {
	for _, attr := range element.Attr {
		if attr.Key == key && attr.Space == "" {
			return strings.TrimSpace(attr.Value)
		}
	}

	return ""
}

// childElements returns the direct children with the given local tag.
func childElements(element *etree.Element, tag string) []*etree.Element {
	var children []*etree.Element

	for _, child := range element.ChildElements() {
		if child.Tag == tag {
			children = append(children, child)
		}
	}

	return children
}

func childElement(element *etree.Element, tag string) *etree.Element {
	children := childElements(element, tag)
	if len(children) == 0 {
		return nil
	}

	return children[0]
}

func childText(element *etree.Element, tag string) string {
	child := childElement(element, tag)
	if child == nil {
		return ""
	}

	return child.Text()
}
