package integration

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/app-updater/internal/config"
	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/repository/state"
	"github.com/oshokin/app-updater/internal/service/extractor"
	"github.com/oshokin/app-updater/internal/service/packager"
	"github.com/oshokin/app-updater/internal/service/updater"
)

// writeArchive creates a zip holding a single file.
func writeArchive(t *testing.T, path, name, contents string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	writer := zip.NewWriter(file)
	entry, err := writer.Create(name)
	require.NoError(t, err)

	_, err = entry.Write([]byte(contents))
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())
}

// eventLog records listener events.
type eventLog struct {
	updater.NopListener

	found     []release.Version
	completed [][]string
	scripts   []string
	failures  []error
}

func (e *eventLog) OnUpdateFound(version release.Version) { e.found = append(e.found, version) }
func (e *eventLog) OnCompleted(paths []string)            { e.completed = append(e.completed, paths) }
func (e *eventLog) OnScriptCreated(path string)           { e.scripts = append(e.scripts, path) }
func (e *eventLog) OnFailed(err error)                    { e.failures = append(e.failures, err) }

// TestUpdater_PublishCheckDownloadExtract publishes a release with the packager,
// serves it over HTTP, runs the updater and extracts the downloaded artifact.
//
//nolint:funlen // Integration test requires comprehensive setup and verification.
func TestUpdater_PublishCheckDownloadExtract(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Publish directory served over HTTP.
	publishDir := t.TempDir()
	writeArchive(t, filepath.Join(publishDir, "app.zip"), "app.exe", "release 1.2")

	server := httptest.NewServer(http.FileServer(http.Dir(publishDir)))
	defer server.Close()

	feedPath := filepath.Join(publishDir, "release.xml")

	require.NoError(t, packager.Run(ctx, &packager.Options{
		FeedPath: feedPath,
		Version:  "1.2.0.0",
		FileURLs: []string{server.URL + "/app.zip"},
		Commands: []string{"echo done"},
		SizeFrom: publishDir,
		Restart:  true,
	}))

	// Client side settings.
	workDir := t.TempDir()
	configPath := filepath.Join(workDir, config.DefaultConfigFilename)

	require.NoError(t, config.Save(configPath, &config.Config{
		Channel:     "release",
		Feeds:       config.Feeds{Release: server.URL + "/release.xml"},
		OwnerPath:   filepath.Join(workDir, "app.exe"),
		DownloadDir: filepath.Join(workDir, "downloads"),
		Timeout:     5 * time.Second,
		Proxy:       config.Proxy{Disabled: true},
	}))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	events := &eventLog{}

	outcome, err := updater.RunCommand(ctx, &updater.CommandOptions{
		Config:         cfg,
		RunningVersion: release.MustParseVersion("1.0"),
		Download:       true,
		Listener:       events,
	})
	require.NoError(t, err)
	require.True(t, outcome.Found)
	require.Equal(t, "1.2.0.0", outcome.Version.String())
	require.NotEmpty(t, outcome.ScriptPath)

	require.Empty(t, events.failures)
	require.Len(t, events.found, 1)
	require.Len(t, events.completed, 1)
	require.Len(t, events.completed[0], 1)
	require.Equal(t, []string{outcome.ScriptPath}, events.scripts)

	downloaded := events.completed[0][0]

	script, err := os.ReadFile(outcome.ScriptPath)
	require.NoError(t, err)
	require.Contains(t, string(script), ` extract "`+downloaded+`" `)
	require.Contains(t, string(script), "echo done")
	require.Contains(t, string(script), "app.exe")

	// The marker is released after the run.
	_, err = os.Stat(filepath.Join(cfg.DownloadDir, updater.MarkerFilename))
	require.ErrorIs(t, err, os.ErrNotExist)

	// What the script runs for every artifact.
	installDir := filepath.Join(workDir, "install")
	require.NoError(t, extractor.Run(ctx, &extractor.Options{Archive: downloaded, TargetDir: installDir}))

	installed, err := os.ReadFile(filepath.Join(installDir, "app.exe"))
	require.NoError(t, err)
	require.Equal(t, "release 1.2", string(installed))

	check, err := state.NewFileRepository(cfg.StateFile).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, release.OutcomeUpdateFound, check.Outcome)
	require.Equal(t, "1.2.0.0", check.FoundVersion.String())
	require.True(t, strings.HasSuffix(check.FeedURL, "/release.xml"))

	// Once installed, the same feed reports nothing new.
	outcome, err = updater.RunCommand(ctx, &updater.CommandOptions{
		Config:         cfg,
		RunningVersion: release.MustParseVersion("1.2"),
		Listener:       &eventLog{},
	})
	require.NoError(t, err)
	require.False(t, outcome.Found)
	require.Empty(t, outcome.ScriptPath)

	check, err = state.NewFileRepository(cfg.StateFile).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, release.OutcomeUpToDate, check.Outcome)
}

// TestUpdater_FeedUnavailable reports a single failure and records it.
func TestUpdater_FeedUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	workDir := t.TempDir()
	cfg := &config.Config{
		Feeds:       config.Feeds{Release: server.URL + "/missing.xml"},
		DownloadDir: workDir,
	}
	require.NoError(t, config.Validate(cfg))

	events := &eventLog{}

	_, err := updater.RunCommand(context.Background(), &updater.CommandOptions{
		Config:         cfg,
		RunningVersion: release.MustParseVersion("1.0"),
		Download:       true,
		Listener:       events,
	})
	require.Error(t, err)
	require.Len(t, events.failures, 1)

	check, err := state.NewFileRepository(cfg.StateFile).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, release.OutcomeFailed, check.Outcome)
	require.Contains(t, check.Error, "404")
}
