package helpers

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	ciVars := []string{
		"JENKINS_HOME",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"TRAVIS",
		"BUILDKITE",
		"DRONE",
		"TF_BUILD",
		"CONTINUOUS_INTEGRATION",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(value string) (OutputFormat, error) {
	switch OutputFormat(value) {
	case "", OutputFormatAuto:
		return OutputFormatAuto, nil
	case OutputFormatJSON, OutputFormatText:
		return OutputFormat(value), nil
	default:
		return "", fmt.Errorf("unsupported output format %q: must be one of [auto json text]", value)
	}
}

// ResolveOutputFormat turns auto into text for interactive terminals and JSON
// everywhere else.
func ResolveOutputFormat(format OutputFormat, out *os.File) OutputFormat {
	if format != OutputFormatAuto && format != "" {
		return format
	}
	if isRunningInCI() || !isTerminal(out) {
		return OutputFormatJSON
	}
	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return OutputFormatJSON
	}
	return OutputFormatText
}

// OutputFile returns w as a file when it is one, so terminal detection can run on it.
func OutputFile(w io.Writer) *os.File {
	f, ok := w.(*os.File)
	if !ok {
		return nil
	}
	return f
}
