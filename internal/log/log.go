// Package log provides structured, colored logging for stockchain.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers for different parts of the system.
var (
	Chain     zerolog.Logger
	Consensus zerolog.Logger
	Ledger    zerolog.Logger
	Storage   zerolog.Logger
	RPC       zerolog.Logger
	Node      zerolog.Logger
)

// Options configures Init.
type Options struct {
	Level string // debug, info, warn, error
	JSON  bool   // JSON on the console instead of colored text
	File  string // optional rotating log file, always JSON

	MaxSizeMB  int // rotate after this many megabytes
	MaxAgeDays int // delete rotated files older than this
	MaxBackups int // keep at most this many rotated files
}

// fileSink is the rotating writer behind Options.File, if any.
var fileSink *lumberjack.Logger

func init() {
	// Default to colored console output
	Logger = NewConsoleLogger(os.Stdout, "info")
	initComponentLoggers()
}

// Init initializes the logger with the given options.
// When File is set, logs are written to both the console (colored or
// JSON depending on JSON) and the rotating file.
func Init(opts Options) error {
	Close()

	if opts.File != "" {
		fileSink = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB, // megabytes
			MaxAge:     opts.MaxAgeDays,
			MaxBackups: opts.MaxBackups,
		}
		// Fail early on an unwritable path rather than on the first log line.
		if _, err := fileSink.Write(nil); err != nil {
			fileSink = nil
			return err
		}

		var consoleWriter io.Writer
		if opts.JSON {
			consoleWriter = os.Stdout
		} else {
			consoleWriter = zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: "15:04:05",
			}
		}

		multi := zerolog.MultiLevelWriter(consoleWriter, fileSink)
		Logger = zerolog.New(multi).
			Level(parseLevel(opts.Level)).
			With().
			Timestamp().
			Logger()
	} else if opts.JSON {
		Logger = NewJSONLogger(os.Stdout, opts.Level)
	} else {
		Logger = NewConsoleLogger(os.Stdout, opts.Level)
	}

	initComponentLoggers()
	return nil
}

// Close flushes and closes the rotating file sink, if one is open.
func Close() error {
	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}

// SetOutput routes every logger to w as JSON. Used by tests.
func SetOutput(w io.Writer, level string) {
	Logger = NewJSONLogger(w, level)
	initComponentLoggers()
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    false,
	}

	lvl := parseLevel(level)
	return zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	lvl := parseLevel(level)
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// parseLevel converts a string level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// initComponentLoggers initializes loggers for each component.
func initComponentLoggers() {
	Chain = WithComponent("chain")
	Consensus = WithComponent("consensus")
	Ledger = WithComponent("ledger")
	Storage = WithComponent("storage")
	RPC = WithComponent("rpc")
	Node = WithComponent("node")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Info logs an info message.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Benchmark helper for timing operations.
func Benchmark(name string) func() {
	start := time.Now()
	return func() {
		Logger.Debug().
			Str("operation", name).
			Dur("duration", time.Since(start)).
			Msg("benchmark")
	}
}
