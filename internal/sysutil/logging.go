// Package sysutil sets up the process-wide logger.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogOptions configures SetupLogger.
type LogOptions struct {
	Level   string // debug|info|warn|error|fatal|panic; unknown means info
	Pretty  bool   // human-readable console output
	NoColor bool
	Service string
	Version string
	Out     io.Writer // default os.Stderr
}

// SetupLogger installs the global zerolog logger used by log.Ctx, the access
// log and the dispatcher, and returns it. Every line carries service and
// version so scheduler output can be told apart from the API's in a shared sink.
func SetupLogger(o LogOptions) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(ParseLevel(o.Level))

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: o.NoColor}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if o.Service != "" {
		ctx = ctx.Str("service", o.Service)
	}
	if o.Version != "" {
		ctx = ctx.Str("version", o.Version)
	}
	log.Logger = ctx.Logger()
	zerolog.DefaultContextLogger = &log.Logger
	return log.Logger
}

// ParseLevel accepts zerolog level names plus "warning"; anything else is info.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel || lvl == zerolog.TraceLevel || lvl == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return lvl
}

// Truthy reports whether an environment value such as NO_COLOR is set to a
// true-ish word.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
