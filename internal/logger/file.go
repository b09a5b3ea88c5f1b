package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// maxLogFileSizeMB is the size at which the log file is rotated.
	maxLogFileSizeMB = 10
	// maxLogFileBackups is the number of rotated files kept next to the log file.
	maxLogFileBackups = 3
	// maxLogFileAgeDays is how long rotated files are kept.
	maxLogFileAgeDays = 30
)

// NewFileWriter returns a rotating writer for path.
func NewFileWriter(path string) *lumberjack.Logger {
	//nolint:exhaustruct // LocalTime and Compress keep their defaults.
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileSizeMB,
		MaxBackups: maxLogFileBackups,
		MaxAge:     maxLogFileAgeDays,
	}
}

// Setup configures the global logger: level from levelName, output to stdout
// and, when logFile is set, to a rotating file as well.
// The returned closer releases the file and must be called on exit.
func Setup(levelName, logFile string, options ...zap.Option) (io.Closer, error) {
	level, ok := ParseLogLevel(levelName)
	if !ok {
		return nil, &UnknownLevelError{Name: levelName}
	}

	defaultLevel.SetLevel(level)

	if logFile == "" {
		SetLogger(New(defaultLevel, options...))

		return nopCloser{}, nil
	}

	fileWriter := NewFileWriter(logFile)
	writer := zapcore.AddSync(io.MultiWriter(os.Stdout, fileWriter))

	SetLogger(NewWithWriter(writer, defaultLevel, options...))

	return fileWriter, nil
}

// UnknownLevelError is returned by Setup for unrecognized level names.
type UnknownLevelError struct {
	// Name is the rejected level name.
	Name string
}

func (e *UnknownLevelError) Error() string {
	return "unknown log level: " + e.Name
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
