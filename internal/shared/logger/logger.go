package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New initializes the process logger.
// 'devMode' enables human-readable console logging at debug level.
func New(devMode bool) zerolog.Logger {
	return newLogger(os.Stderr, devMode)
}

func newLogger(out io.Writer, devMode bool) zerolog.Logger {
	if devMode {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
		return zerolog.New(consoleWriter).Level(zerolog.DebugLevel).
			With().Timestamp().Str("service", "invoice-financing").Logger()
	}

	// JSON lines for log shippers
	return zerolog.New(out).Level(zerolog.InfoLevel).
		With().Timestamp().Str("service", "invoice-financing").Logger()
}
