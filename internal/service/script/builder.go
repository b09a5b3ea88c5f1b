package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

// Dialect selects the shell the script is written for.
type Dialect int

const (
	// Batch is a Windows cmd.exe script.
	Batch Dialect = iota
	// Shell is a POSIX sh script.
	Shell
)

const (
	// ExtractLogFilename receives the output of every extract line.
	ExtractLogFilename = "app-updater-extract.log"

	// DefaultBaseName is the script file name without extension.
	DefaultBaseName = "app-updater-install"

	// DefaultDirMode is used when creating the script directory.
	DefaultDirMode os.FileMode = 0o755

	// DefaultFileMode makes the script executable.
	DefaultFileMode os.FileMode = 0o755
)

// ErrScriptWrite wraps file-system failures while writing the script.
var ErrScriptWrite = errors.New("write install script")

// DefaultDialect returns the dialect of the current platform.
func DefaultDialect() Dialect {
	if runtime.GOOS == "windows" {
		return Batch
	}

	return Shell
}

// Extension returns the script file extension for the dialect.
func (d Dialect) Extension() string {
	if d == Batch {
		return ".bat"
	}

	return ".sh"
}

// lineEnding returns the line terminator for the dialect.
func (d Dialect) lineEnding() string {
	if d == Batch {
		return "\r\n"
	}

	return "\n"
}

// DefaultPath returns the script path inside dir for the dialect.
func DefaultPath(dir string, dialect Dialect) string {
	return filepath.Join(dir, DefaultBaseName+dialect.Extension())
}

// Builder formats and writes install scripts.
type Builder struct {
	// Dialect selects batch or shell syntax.
	Dialect Dialect
	// Extractor is the executable invoked as "<Extractor> extract <artifact> <dir>".
	Extractor string
	// WorkingDir is the extraction target written into every extract line.
	WorkingDir string
	// WaitFor, when set, makes the extractor wait for this process name to exit first.
	WaitFor string
}

// NewBuilder returns a builder for the current platform that uses the running
// executable as extractor and the current working directory as target.
func NewBuilder() (*Builder, error) {
	extractor, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate extractor: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	return &Builder{
		Dialect:    DefaultDialect(),
		Extractor:  extractor,
		WorkingDir: workingDir,
	}, nil
}

// Build writes the script to path, replacing any existing file.
func (b *Builder) Build(path string, artifacts, commands []string, ownerPath string) error {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrScriptWrite, err)
	}

	contents := b.Render(artifacts, commands, ownerPath)

	if err := os.WriteFile(filepath.Clean(path), []byte(contents), DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrScriptWrite, err)
	}

	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrScriptWrite, err)
	}

	return nil
}

// Render returns the script contents. The same inputs always produce the same output.
func (b *Builder) Render(artifacts, commands []string, ownerPath string) string {
	lines := make([]string, 0, len(artifacts)+len(commands)+3)

	if b.Dialect == Shell {
		lines = append(lines, "#!/bin/sh", "set +x")
	} else {
		lines = append(lines, "@echo off")
	}

	for _, artifact := range artifacts {
		lines = append(lines, b.extractLine(artifact))
	}

	lines = append(lines, commands...)

	if ownerPath != "" {
		lines = append(lines, b.launchLine(ownerPath))
	}

	ending := b.Dialect.lineEnding()

	return strings.Join(lines, ending) + ending
}

func (b *Builder) extractLine(artifact string) string {
	var builder strings.Builder

	builder.WriteString(quote(b.Extractor))
	builder.WriteString(" extract ")
	builder.WriteString(quote(artifact))
	builder.WriteString(" ")
	builder.WriteString(quote(b.WorkingDir))

	if b.WaitFor != "" {
		builder.WriteString(" --wait-for ")
		builder.WriteString(quote(b.WaitFor))
	}

	builder.WriteString(" >> ")
	builder.WriteString(quote(ExtractLogFilename))
	builder.WriteString(" 2>&1")

	return builder.String()
}

func (b *Builder) launchLine(ownerPath string) string {
	if b.Dialect == Shell {
		return quoteIfSpaced(ownerPath) + " &"
	}

	// start reads a lone quoted argument as a window title. Plain paths keep
	// the single-argument line existing install scripts are written with;
	// paths with whitespace get an explicit empty title.
	if hasSpace(ownerPath) {
		return `start "" "` + ownerPath + `"`
	}

	return `start "` + ownerPath + `"`
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

func quoteIfSpaced(s string) string {
	if hasSpace(s) {
		return quote(s)
	}

	return s
}

func quote(s string) string {
	return `"` + s + `"`
}
