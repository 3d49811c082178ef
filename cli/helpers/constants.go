package helpers

import "time"

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputFormatAuto OutputFormat = "auto"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatText OutputFormat = "text"
)

// lockRetryDelay is how often a busy file lock is retried.
const lockRetryDelay = 100 * time.Millisecond
