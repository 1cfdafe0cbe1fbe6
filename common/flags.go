package common

import (
	"os"
	"path/filepath"
	"time"
)

const (
	Version = "v0.9.1"

	HomeVariable = `NUMERAI_HOME`
)

var (
	// Startup time of this process, used for uptime reporting.
	When = time.Now()

	DebugFlag      bool
	TraceFlag      bool
	SilentFlag     bool
	LogLinenumbers bool

	// LogHides lists message fragments that are never printed (credentials etc.)
	LogHides = []string{}
)

func Silent() bool {
	return SilentFlag
}

func Debug() bool {
	return DebugFlag || TraceFlag
}

func Tracing() bool {
	return TraceFlag
}

// Uptime reports how long this process has been running.
func Uptime() time.Duration {
	return time.Since(When)
}

// Home returns the working directory for datasets, models, and snapshots.
// Defaults to $HOME/.numerai and can be overridden with $NUMERAI_HOME.
func Home() string {
	home := os.Getenv(HomeVariable)
	if len(home) > 0 {
		return ExpandPath(home)
	}
	return ExpandPath("$HOME/.numerai")
}

func ExpandPath(entry string) string {
	intermediate := os.ExpandEnv(entry)
	result, err := filepath.Abs(intermediate)
	if err != nil {
		return intermediate
	}
	return result
}
