package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Init configures the process-wide logger used by vmctl and, through the
// diagnostic package, by the vm runtime's linking diagnostics.
func Init(verbose, noColor bool) {
	log.SetDefault(log.NewWithOptions(io.MultiWriter(os.Stderr),
		log.Options{
			ReportCaller:    verbose,
			ReportTimestamp: false,
			TimeFormat:      time.RFC3339,
			Prefix:          "VMCTL",
		}))

	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	log.SetColorProfile(termenv.ANSI256)
	if noColor {
		log.SetColorProfile(termenv.Ascii)
	}
}
