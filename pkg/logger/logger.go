// Package logger builds the process logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// Formats accepted by WithFormat.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type LogBuild struct {
	writer io.Writer
	path   string
	level  string
	format string
}

type LogData struct {
	writer  io.Writer
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{}
}

func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// WithLevel sets the minimum level by name ("debug", "info", "warn", ...).
func (build *LogBuild) WithLevel(level string) *LogBuild {
	build.level = level
	return build
}

// WithFormat selects JSON lines or the human-readable console format.
func (build *LogBuild) WithFormat(format string) *LogBuild {
	build.format = format
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	level := zerolog.InfoLevel
	if build.level != "" {
		level, err = zerolog.ParseLevel(strings.ToLower(build.level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", build.level, err)
		}
	}

	logData = new(LogData)
	logData.writer = os.Stderr
	if build.writer != nil {
		logData.writer = build.writer
	}
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		logData.writer = zerolog.SyncWriter(logData.LogFile)
	}

	switch build.format {
	case "", FormatJSON:
	case FormatConsole:
		logData.writer = zerolog.ConsoleWriter{Out: logData.writer, NoColor: build.path != ""}
	default:
		logData.Close()
		return nil, fmt.Errorf("unknown log format %q", build.format)
	}

	logData.Logger = zerolog.New(logData.writer).Level(level).With().Timestamp().Logger()
	return logData, nil
}

// Close closes the log file, if any.
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}
