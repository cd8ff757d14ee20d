// Package logging builds the single zerolog.Logger each clipslot process
// uses, grounded on the "src"/"ws" teacher variants' structured field
// discipline rather than the older go-server variant's prefixed log.Logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options controls the logger's level and output encoding.
type Options struct {
	Level  string // debug|info|warn|error
	Pretty bool   // console-writer formatting instead of JSON, for local dev
	Output io.Writer
}

// New builds a zerolog.Logger scoped to one process (e.g. "relay-server" or
// "sync-client"), tagged with a "component" field so multiplexed log output
// stays attributable.
func New(component string, opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// RotatingFileWriter returns an io.WriteCloser that, before a write which
// would take path past thresholdBytes, renames path to path+".old"
// (replacing any earlier backup) and starts a fresh file, keeping a single
// ".old" generation. It is the Go equivalent of original_source's
// src-tauri/src/logging.rs rotation policy (2MB threshold, one backup),
// implemented as the mutex-guarded rotatingFile in rotate.go and handed to
// zerolog as its io.Writer.
func RotatingFileWriter(path string, thresholdBytes int64) (io.WriteCloser, error) {
	return newRotatingFile(path, thresholdBytes)
}
