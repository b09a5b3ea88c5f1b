package feed

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/app-updater/internal/domain/release"
)

const sampleFeed = `<?xml version="1.0" encoding="utf-8"?>
<f:Feed xmlns:f="urn:example:updates" xmlns:x="urn:example:other">
  <f:Update UpdatedDate="2024-03-01T10:00:00Z" Mode="ReleaseBuild" Version="1.2.0.0" ChangeSet="512">
    <f:Comments>Faster startup</f:Comments>
    <f:Files>
      <f:File FileSize="1000" Location="https://cdn.example.com/app.zip" Restart="true" Version="1.2.0.0"/>
      <f:File FileSize="0" Location="https://cdn.example.com/docs.zip" Restart="false" Version="1.0.0.0"/>
    </f:Files>
    <f:Commands>
      <f:Command>echo done</f:Command>
      <f:Command>del old.cfg</f:Command>
    </f:Commands>
  </f:Update>
  <f:Update UpdatedDate="2024-01-01" Mode="Nightly" Version="1.1" ChangeSet="400">
    <f:Files>
      <f:File Location="https://cdn.example.com/app-1.1.zip"/>
    </f:Files>
  </f:Update>
  <f:Update Mode="ReleaseBuild" Version="not-a-version"/>
  <f:Update Mode="ReleaseBuild" Version="1.3" ChangeSet="abc"/>
  <f:Update Mode="ReleaseBuild" Version="1.4">
    <f:Files><f:File Location="relative/app.zip"/></f:Files>
  </f:Update>
  <f:Update Mode="ReleaseBuild" Version="1.5">
    <f:Files><f:File Location="https://cdn.example.com/a.zip" Version="1.5-beta"/></f:Files>
  </f:Update>
  <f:Update Version="1.6" UpdatedDate="yesterday"/>
  <x:Update Version="9.9"/>
  <Update Version="2.0" Mode="BetaBuild"/>
</f:Feed>`

// TestParse_SkipsMalformedEntries verifies N valid plus M malformed entries yield exactly N records.
func TestParse_SkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	records, err := Parse(context.Background(), strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, records, 4)

	first := records[0]
	require.Equal(t, "1.2.0.0", first.Version.String())
	require.Equal(t, release.ModeReleaseBuild, first.Mode)
	require.Equal(t, 512, first.ChangeSet)
	require.Equal(t, "Faster startup", first.Comments)
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), first.PublishedAt.UTC())
	require.Equal(t, []string{"echo done", "del old.cfg"}, first.PostInstallCommands)
	require.Len(t, first.Files, 2)
	require.Equal(t, "https://cdn.example.com/app.zip", first.Files[0].Location)
	require.Equal(t, int64(1000), first.Files[0].Size)
	require.True(t, first.Files[0].RestartRequired)
	require.Equal(t, "1.0.0.0", first.Files[1].Version.String())

	second := records[1]
	require.Equal(t, release.ModeUnknown, second.Mode)
	require.Equal(t, "1.1.0.0", second.Files[0].Version.String(), "file inherits record version")

	// Both namespaces are declared on the root, so x:Update is an entry too.
	require.Equal(t, "9.9.0.0", records[2].Version.String())
	require.Equal(t, "2.0.0.0", records[3].Version.String())
}

// TestParseNamespace keeps only entries bound to the requested namespace.
func TestParseNamespace(t *testing.T) {
	t.Parallel()

	records, err := ParseNamespace(context.Background(), strings.NewReader(sampleFeed), "urn:example:updates")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "1.2.0.0", records[0].Version.String())
	require.Equal(t, "1.1.0.0", records[1].Version.String())
}

// TestParse_UndeclaredPrefix skips entries whose prefix is not declared on the root.
func TestParse_UndeclaredPrefix(t *testing.T) {
	t.Parallel()

	const doc = `<Feed xmlns="urn:example:updates"><Update Version="1.0"/><q:Update Version="2.0"/></Feed>`

	records, err := Parse(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "1.0.0.0", records[0].Version.String())
}

// TestParse_CommandsVerbatim keeps command text as written and skips empty elements.
func TestParse_CommandsVerbatim(t *testing.T) {
	t.Parallel()

	const doc = `<Feed xmlns="urn:example:updates"><Update Version="1.0"><Commands>` +
		`<Command>  cd "C:\app" </Command><Command/><Command></Command><Command>echo done</Command>` +
		`</Commands></Update></Feed>`

	records, err := Parse(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []string{`  cd "C:\app" `, "echo done"}, records[0].PostInstallCommands)
}

// TestParse_EmptyAndBroken distinguishes an empty feed from an unreadable document.
func TestParse_EmptyAndBroken(t *testing.T) {
	t.Parallel()

	records, err := Parse(context.Background(), strings.NewReader(`<Feed xmlns="urn:x"/>`))
	require.NoError(t, err)
	require.Empty(t, records)

	_, err = Parse(context.Background(), strings.NewReader(`<Feed><Update`))
	require.ErrorIs(t, err, ErrMalformedFeed)

	_, err = Parse(context.Background(), strings.NewReader(``))
	require.ErrorIs(t, err, ErrMalformedFeed)
}

// TestEncode_Parse checks a packaged document is readable by the client.
func TestEncode_Parse(t *testing.T) {
	t.Parallel()

	record := &release.Record{
		Version:     release.MustParseVersion("3.1"),
		ChangeSet:   77,
		PublishedAt: time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC),
		Comments:    "Bug fixes",
		Mode:        release.ModeBetaBuild,
		Files: []*release.Artifact{{
			Location:        "https://cdn.example.com/app-3.1.zip",
			Size:            2048,
			Version:         release.MustParseVersion("3.1"),
			RestartRequired: true,
		}},
		PostInstallCommands: []string{"echo done"},
	}

	var buf bytes.Buffer

	require.NoError(t, Encode(&buf, "", []*release.Record{record}))
	require.Contains(t, buf.String(), DefaultNamespace)

	records, err := ParseNamespace(context.Background(), &buf, DefaultNamespace)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, record, records[0])
}

// TestRemoveEntries deletes entries matching a version regardless of its spelling.
func TestRemoveEntries(t *testing.T) {
	t.Parallel()

	doc := NewDocument("")
	AppendEntry(doc.Root(), &release.Record{Version: release.MustParseVersion("1.0")})
	AppendEntry(doc.Root(), &release.Record{Version: release.MustParseVersion("1.1")})

	require.Equal(t, 1, RemoveEntries(doc.Root(), release.MustParseVersion("1.0.0.0")))
	require.Zero(t, RemoveEntries(doc.Root(), release.MustParseVersion("5")))
	require.Len(t, doc.Root().ChildElements(), 1)
}
