package commands

import "time"

// secondsToDuration converts a config seconds field to a time.Duration,
// tolerating the zero value (callers then fall back to globallock's own
// defaults).
func secondsToDuration(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
