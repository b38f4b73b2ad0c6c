// Package logging configures the process-wide logger. Messages carry a
// bracketed level prefix ("[INFO] ...") which logutils filters below the
// configured threshold.
package logging

import (
	"log"
	"os"

	"github.com/hashicorp/logutils"
)

var levels = []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"}

// Setup installs a level filter on the default logger. Unknown levels
// fall back to INFO.
func Setup(minLevel string) {
	min := logutils.LogLevel(minLevel)
	valid := false
	for _, l := range levels {
		if l == min {
			valid = true
			break
		}
	}
	if !valid {
		min = "INFO"
	}

	log.SetOutput(&logutils.LevelFilter{
		Levels:   levels,
		MinLevel: min,
		Writer:   os.Stderr,
	})
}
