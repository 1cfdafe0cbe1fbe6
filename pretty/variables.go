package pretty

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/romainhaenni/numerai-cli/common"
)

var (
	Colorless   bool
	Iconic      bool
	Disabled    bool
	Interactive bool
	White       string
	Grey        string
	Black       string
	Red         string
	Green       string
	Blue        string
	Yellow      string
	Magenta     string
	Cyan        string
	Reset       string
	Home        string
	Clear       string
	Bold        string
	Faint       string
	Italic      string
	Underline   string
)

func Setup() {
	stdin := isatty.IsTerminal(os.Stdin.Fd())
	stdout := isatty.IsTerminal(os.Stdout.Fd())
	stderr := isatty.IsTerminal(os.Stderr.Fd())

	if os.Getenv("NO_COLOR") != "" {
		Colorless = true
	}

	if os.Getenv("TERM") == "" || os.Getenv("TERM") == "dumb" {
		Colorless = true
	}

	// Interactive requires all three to be TTY for safe raw mode handling.
	Interactive = stdin && stdout && stderr

	// Colors are allowed whenever stdout is a TTY, even with piped stdin.
	visualOutput := stdout && !Colorless

	Iconic = Interactive && !Colorless

	common.Trace("Interactive mode enabled: %v; colors enabled: %v; icons enabled: %v", Interactive, visualOutput, Iconic)
	if visualOutput && !Disabled {
		White = csi("97m")
		Grey = csi("90m")
		Black = csi("30m")
		Red = csi("91m")
		Green = csi("92m")
		Yellow = csi("93m")
		Blue = csi("94m")
		Magenta = csi("95m")
		Cyan = csi("96m")
		Reset = csi("0m")
		Home = csi("1;1H")
		Clear = csi("0J")
		Bold = csi("1m")
		Faint = csi("2m")
		Italic = csi("3m")
		Underline = csi("4m")
	}
}

// Color Conventions:
// - Green: Success messages
// - Yellow: Warnings
// - Red: Errors
// - Bold: Section headers

// Success outputs a success message in Green with a newline.
func Success(message string) {
	common.Stdout("%s%s%s\n", Green, message, Reset)
}

// Warning outputs a warning message in Yellow with a newline.
func Warning(message string) {
	common.Stdout("%s%s%s\n", Yellow, message, Reset)
}

// Error outputs an error message in Red with a newline.
func Error(message string) {
	common.Stdout("%s%s%s\n", Red, message, Reset)
}

// Header outputs a header text in Bold with a newline.
func Header(text string) {
	common.Stdout("%s%s%s\n", Bold, text, Reset)
}

// Exit prints a final message and terminates the process with given code.
func Exit(code int, format string, rest ...interface{}) {
	message := fmt.Sprintf(format, rest...)
	if code == 0 {
		Success(message)
	} else {
		Error(message)
	}
	common.WaitLogs()
	os.Exit(code)
}

// Guard exits with given code and message unless the condition holds.
func Guard(condition bool, code int, format string, rest ...interface{}) {
	if !condition {
		Exit(code, format, rest...)
	}
}
