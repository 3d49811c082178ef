package metrics

import "strings"

const prefix = "senvr_"

// MetricName prefixes name with the service namespace unless it already carries it.
func MetricName(name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

// MetricNameWithSubsystem joins the namespace, a subsystem and a metric name.
func MetricNameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(subsystem, "_")
	if name == "" {
		return prefix + subsystem
	}
	return prefix + subsystem + "_" + name
}
