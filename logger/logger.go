package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Global logger instance
	Logger = zerolog.Nop()
)

type Options struct {
	Level string
	// JSON lines instead of the human readable console format
	JSON bool
	// When set, logs are also written to a rotating file
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Initialize sets up the global logger with appropriate configuration
func Initialize(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}
	if opts.JSON {
		output = os.Stderr
	}
	if opts.File != "" {
		output = zerolog.MultiLevelWriter(output, FileWriter(opts.File, opts.MaxSizeMB, opts.MaxBackups))
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	log.Logger = Logger
}

// ParseLevel accepts any level name zerolog knows, in any case; anything else is info
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// FileWriter returns a size-rotated log file
func FileWriter(path string, maxSizeMB, maxBackups int) io.Writer {
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
}
