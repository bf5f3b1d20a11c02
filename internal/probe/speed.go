package probe

import "time"

// Instantaneous returns the throughput of deltaBytes received over delta,
// in bytes per second. A non-positive delta yields 0.
func Instantaneous(deltaBytes int64, delta time.Duration) float64 {
	if delta <= 0 {
		return 0
	}
	return float64(deltaBytes) / delta.Seconds()
}

// Average returns the running throughput of totalBytes over total, in bytes
// per second. A non-positive total yields 0.
func Average(totalBytes int64, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(totalBytes) / total.Seconds()
}
