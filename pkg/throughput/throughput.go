package throughput

import "time"

// MiB is the unit throughput is reported in.
const MiB = 1024 * 1024

// Calculate returns the throughput in MB/s (mebibytes per second) for size
// bytes processed in elapsed seconds. elapsed must be positive.
func Calculate(size int, elapsed float64) float64 {
	return (float64(size) / MiB) / elapsed
}

// FromDuration is Calculate for a measured duration. Durations below the
// clock's granularity are treated as one nanosecond.
func FromDuration(size int, elapsed time.Duration) float64 {
	if elapsed < time.Nanosecond {
		elapsed = time.Nanosecond
	}

	return Calculate(size, elapsed.Seconds())
}
