package console

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/service/downloader"
)

// plainStep is the percentage step between progress lines without a terminal.
const plainStep = 10

// Listener renders orchestrator events. On a terminal downloads get a
// progress bar, otherwise progress is printed every plainStep percent.
type Listener struct {
	out         io.Writer
	interactive bool

	mu          sync.Mutex
	bar         *pterm.ProgressbarPrinter
	artifact    *release.Artifact
	lastPercent int
	scriptPath  string
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New returns a listener writing to w, interactive when w is a terminal
// and NO_COLOR is not set.
func New(w io.Writer) *Listener {
	f, ok := w.(*os.File)

	return NewWithWriter(w, ok && IsTerminal(f) && os.Getenv("NO_COLOR") == "")
}

// NewWithWriter returns a listener writing to w.
func NewWithWriter(w io.Writer, interactive bool) *Listener {
	return &Listener{
		out:         w,
		interactive: interactive,
		lastPercent: -1,
	}
}

// Context returns ctx with a logger that only lets warnings through while
// the progress bar owns the terminal. Non-interactive listeners return ctx.
func (l *Listener) Context(ctx context.Context) context.Context {
	if !l.interactive {
		return ctx
	}

	quiet := logger.FromContext(ctx).WithOptions(logger.WithLevel(zap.WarnLevel))

	return logger.ToContext(ctx, quiet)
}

// ScriptPath returns the path reported by OnScriptCreated.
func (l *Listener) ScriptPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.scriptPath
}

// OnUpdateFound prints the found version.
func (l *Listener) OnUpdateFound(version release.Version) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.info("Update %s is available", version)
}

// OnProgress advances the bar of the current artifact.
func (l *Listener) OnProgress(progress downloader.Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if progress.Artifact != l.artifact {
		l.stopBar()
		l.artifact = progress.Artifact
		l.lastPercent = -1
		l.startBar(artifactName(progress.Artifact))
	}

	if l.bar != nil {
		if delta := progress.Percent - l.bar.Current; delta > 0 {
			l.bar.Add(delta)
		}

		return
	}

	first := l.lastPercent < 0
	finished := progress.Percent == 100 && l.lastPercent != 100

	if first || finished || progress.Percent >= l.lastPercent+plainStep {
		l.lastPercent = progress.Percent
		_, _ = fmt.Fprintf(l.out, "Downloading %s: %d%% (%d bytes)\n",
			artifactName(progress.Artifact), progress.Percent, progress.ArtifactBytes)
	}
}

// OnCompleted finishes the bar and prints the number of downloaded files.
func (l *Listener) OnCompleted(paths []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopBar()
	l.info("Downloaded %d file(s)", len(paths))
}

// OnScriptCreated prints the script path.
func (l *Listener) OnScriptCreated(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.scriptPath = path

	if l.interactive {
		_, _ = fmt.Fprint(l.out, pterm.Success.Sprintfln("Install script written to %s", path))
		return
	}

	_, _ = fmt.Fprintf(l.out, "Install script written to %s\n", path)
}

// OnFailed finishes the bar and prints the error.
func (l *Listener) OnFailed(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopBar()

	if l.interactive {
		_, _ = fmt.Fprint(l.out, pterm.Error.Sprintfln("Update failed: %v", err))
		return
	}

	_, _ = fmt.Fprintf(l.out, "Update failed: %v\n", err)
}

func (l *Listener) info(format string, args ...any) {
	if l.interactive {
		_, _ = fmt.Fprint(l.out, pterm.Info.Sprintfln(format, args...))
		return
	}

	_, _ = fmt.Fprintf(l.out, format+"\n", args...)
}

func (l *Listener) startBar(title string) {
	if !l.interactive {
		return
	}

	bar, err := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle(title).
		WithWriter(l.out).
		Start()
	if err != nil {
		return
	}

	l.bar = bar
}

func (l *Listener) stopBar() {
	if l.bar == nil {
		return
	}

	_, _ = l.bar.Stop()
	l.bar = nil
}

// artifactName is the last path segment of the artifact location.
func artifactName(artifact *release.Artifact) string {
	if artifact == nil {
		return ""
	}

	if parsed, err := url.Parse(artifact.Location); err == nil && parsed.Path != "" {
		return path.Base(parsed.Path)
	}

	return artifact.Location
}
