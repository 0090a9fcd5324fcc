// Package kernels implements the fixed-width sequential memory access loops
// the benchmarks time.
//
// A buffer is processed as len(b)/w chunks of w bytes each, every chunk being
// loaded or stored as w/8 64-bit lanes at once. Buffers must be 8-byte aligned,
// which every region from the memory package is. WidthScalar walks the buffer
// one byte at a time and serves as the baseline for the vector widths.
package kernels

import (
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sys/cpu"
)

type Width int

const (
	WidthScalar Width = 1
	Width8      Width = 8
	Width16     Width = 16
	Width32     Width = 32
	Width64     Width = 64
)

// Pattern is the byte every benchmark buffer is filled with.
const Pattern byte = 1

const lanePattern uint64 = 0x0101010101010101

func Widths() []Width {
	return []Width{WidthScalar, Width8, Width16, Width32, Width64}
}

func (w Width) String() string {
	if w == WidthScalar {
		return "scalar"
	}

	return strconv.Itoa(int(w))
}

func (w Width) Valid() bool {
	switch w {
	case WidthScalar, Width8, Width16, Width32, Width64:
		return true
	default:
		return false
	}
}

func ParseWidth(s string) (Width, error) {
	switch s {
	case "", "auto":
		return DefaultWidth(), nil
	case "scalar":
		return WidthScalar, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid width %q: %w", s, err)
	}

	w := Width(n)
	if !w.Valid() {
		return 0, fmt.Errorf("unsupported width %v, expected one of %v", n, Widths())
	}

	return w, nil
}

// DefaultWidth returns the widest vector width the CPU handles natively.
func DefaultWidth() Width {
	switch runtime.GOARCH {
	case "amd64":
		if cpu.X86.HasAVX512F {
			return Width64
		}

		if cpu.X86.HasAVX2 {
			return Width32
		}
	}

	return Width16
}

// Features lists the vector extensions relevant to DefaultWidth.
func Features() []string {
	features := []string{}

	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE2 {
			features = append(features, "sse2")
		}
		if cpu.X86.HasAVX {
			features = append(features, "avx")
		}
		if cpu.X86.HasAVX2 {
			features = append(features, "avx2")
		}
		if cpu.X86.HasAVX512F {
			features = append(features, "avx512f")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "asimd")
		}
		if cpu.ARM64.HasSVE {
			features = append(features, "sve")
		}
	}

	return features
}
