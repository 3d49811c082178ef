package logger

import (
	"io"
	"os"
)

// Setup installs the process logger for a CLI run and returns it. Logs go to stderr
// so generated lines and snapshots written to stdout stay clean for piping.
func Setup(level LogLevel, json, source bool) Logger {
	return SetupTo(os.Stderr, level, json, source)
}

// SetupTo is Setup with an explicit destination.
func SetupTo(out io.Writer, level LogLevel, json, source bool) Logger {
	Init(&Config{
		Level:      level,
		Output:     out,
		JSON:       json,
		AddSource:  source,
		TimeFormat: "15:04:05",
	})
	return GetDefault()
}
