package bench

var defaultBenchmark = &Benchmark{}

// BenchmarkRead returns the sequential read throughput in MB/s for a size
// byte buffer, or FailureSentinel if it could not be measured.
func BenchmarkRead(size int) float64 {
	return sentinel(defaultBenchmark.Read(size))
}

// BenchmarkWrite returns the sequential write throughput in MB/s for a size
// byte buffer, or FailureSentinel if it could not be measured.
func BenchmarkWrite(size int) float64 {
	return sentinel(defaultBenchmark.Write(size))
}

// BenchmarkCopy returns the copy throughput in MB/s for a size byte buffer,
// or FailureSentinel if it could not be measured.
func BenchmarkCopy(size int) float64 {
	return sentinel(defaultBenchmark.Copy(size))
}

func sentinel(rv float64, err error) float64 {
	if err != nil {
		return FailureSentinel
	}

	return rv
}
