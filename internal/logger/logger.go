package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the shared diagnostic logger for the shipper internals.
	// It writes to the local process only and never feeds back into a
	// shipper, so failures inside the delivery path cannot recurse.
	Logger zerolog.Logger
)

func init() {
	Logger = newLogger(os.Stderr)
}

// Init reconfigures the diagnostic logger with the given level.
func Init(level string) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	var output io.Writer = os.Stderr

	// Pretty console logging in development
	if os.Getenv("ENV") == "development" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	Logger = newLogger(output)
}

func newLogger(output io.Writer) zerolog.Logger {
	return zerolog.New(output).
		With().
		Timestamp().
		Logger()
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithError returns a logger with an error field
func WithError(err error) zerolog.Logger {
	return Logger.With().Err(err).Logger()
}
