package feed

import (
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/oshokin/app-updater/internal/domain/release"
)

const (
	// DefaultNamespace is written by Encode when no namespace is given.
	DefaultNamespace = "urn:app-updater:feed:v1"

	rootTag      = "Updates"
	indentSpaces = 2
)

// Encode writes records as a feed document bound to namespace under the
// "u" prefix. Used by the packager and in tests.
func Encode(w io.Writer, namespace string, records []*release.Record) error {
	doc := NewDocument(namespace)
	root := doc.Root()

	for _, record := range records {
		AppendEntry(root, record)
	}

	doc.Indent(indentSpaces)

	_, err := doc.WriteTo(w)

	return err
}

// NewDocument creates an empty feed document.
func NewDocument(namespace string) *etree.Document {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(prefixed(feedPrefix, rootTag))
	root.CreateAttr(xmlnsAttr+":"+feedPrefix, namespace)

	return doc
}

// feedPrefix is the namespace prefix used by encoded documents.
const feedPrefix = "u"

func prefixed(prefix, tag string) string {
	if prefix == "" {
		return tag
	}

	return prefix + ":" + tag
}

// AppendEntry adds record as an Update element under root, reusing the
// root's namespace prefix.
func AppendEntry(root *etree.Element, record *release.Record) *etree.Element {
	prefix := root.Space

	entry := root.CreateElement(prefixed(prefix, entryTag))
	entry.CreateAttr(versionAttr, record.Version.String())
	entry.CreateAttr(modeAttr, record.Mode.String())
	entry.CreateAttr(changeSetAttr, strconv.Itoa(record.ChangeSet))

	if !record.PublishedAt.IsZero() {
		entry.CreateAttr(updatedDateAttr, record.PublishedAt.UTC().Format(time.RFC3339))
	}

	if record.Comments != "" {
		entry.CreateElement(prefixed(prefix, commentsTag)).SetText(record.Comments)
	}

	files := entry.CreateElement(prefixed(prefix, filesTag))
	for _, artifact := range record.Files {
		file := files.CreateElement(prefixed(prefix, fileTag))
		file.CreateAttr(locationAttr, artifact.Location)
		file.CreateAttr(fileSizeAttr, strconv.FormatInt(artifact.Size, 10))
		file.CreateAttr(restartAttr, strconv.FormatBool(artifact.RestartRequired))
		file.CreateAttr(versionAttr, artifact.Version.String())
	}

	if len(record.PostInstallCommands) > 0 {
		commands := entry.CreateElement(prefixed(prefix, commandsTag))
		for _, command := range record.PostInstallCommands {
			commands.CreateElement(prefixed(prefix, commandTag)).SetText(command)
		}
	}

	return entry
}

// RemoveEntries deletes every Update element under root whose Version
// attribute equals version and reports how many were removed.
func RemoveEntries(root *etree.Element, version release.Version) int {
	removed := 0

	for _, entry := range findEntries(root, namespacesOf(root), "") {
		entryVersion, err := release.ParseVersion(attrValue(entry, versionAttr))
		if err != nil || !entryVersion.Equal(version) {
			continue
		}

		if parent := entry.Parent(); parent != nil {
			parent.RemoveChild(entry)

			removed++
		}
	}

	return removed
}
