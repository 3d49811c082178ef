package routes

import "fmt"

const version = "v0"

// Version returns the current API version string used in routing (e.g., "v0").
func Version() string {
	return version
}

// Base returns the versioned API base path (e.g., "/api/v0").
func Base() string {
	return fmt.Sprintf("/api/%s", Version())
}

// Speak returns the generation base path (e.g., "/api/v0/speak").
func Speak() string {
	return Base() + "/speak"
}

// Messages returns the live ingest path (e.g., "/api/v0/messages").
func Messages() string {
	return Base() + "/messages"
}

// Export returns the snapshot export path (e.g., "/api/v0/export").
func Export() string {
	return Base() + "/export"
}

// Status returns the throughput status path (e.g., "/api/v0/status").
func Status() string {
	return Base() + "/status"
}

// Health returns the readiness path (e.g., "/api/v0/health").
func Health() string {
	return Base() + "/health"
}
