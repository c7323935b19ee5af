package tui

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode describes how command output should be rendered.
type OutputMode int

const (
	// ModeRich renders styled tables and colored diagnostics.
	ModeRich OutputMode = iota
	// ModePlain writes the same tables without color.
	ModePlain
	// ModeJSON writes structured JSON output.
	ModeJSON
)

// Color settings accepted by DetectMode.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DetectMode determines the output mode for the given writer. color is the
// display.color setting; anything unrecognized behaves like auto.
func DetectMode(out io.Writer, color string, jsonOutput bool) OutputMode {
	if jsonOutput {
		return ModeJSON
	}
	switch strings.ToLower(strings.TrimSpace(color)) {
	case ColorAlways:
		return ModeRich
	case ColorNever:
		return ModePlain
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return ModePlain
	}
	if !IsTerminal(out) {
		return ModePlain
	}
	if runtime.GOOS != "windows" {
		term := os.Getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return ModePlain
		}
	}
	return ModeRich
}

// IsTerminal reports whether out is an interactive terminal.
func IsTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
