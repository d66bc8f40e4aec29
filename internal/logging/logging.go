// Package logging configures the satellite's single structured logger,
// replacing teacher's hand-rolled text_color_set/dw_printf console writer
// (src/log.go, src/textcolor.go) with github.com/charmbracelet/log.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options controls the logger New builds, sourced from --debug/--log-format.
type Options struct {
	Debug  bool
	Format string // "text" or "json"
	Output io.Writer
}

// New builds the satellite's one logger instance. It is constructed once
// in cmd/satellite and passed down by constructor injection to every
// component that needs it - never referenced as a package-level global,
// matching SPEC_FULL.md §4.9.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	logOpts := log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	}
	if opts.Format == "json" {
		logOpts.Formatter = log.JSONFormatter
	} else {
		logOpts.Formatter = log.TextFormatter
	}

	logger := log.NewWithOptions(out, logOpts)
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
