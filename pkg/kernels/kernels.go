package kernels

import (
	"fmt"
	"unsafe"
)

func chunks[V any](b []byte) []V {
	var v V

	n := len(b) / int(unsafe.Sizeof(v))
	if n == 0 {
		return nil
	}

	return unsafe.Slice((*V)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// Sum adds up b lane-wise as 64-bit integers and folds the lanes into one
// value. Bytes past the last full chunk are not read. WidthScalar adds up
// the individual bytes instead.
func Sum(b []byte, w Width) uint64 {
	switch w {
	case WidthScalar:
		var acc uint64
		for _, v := range b {
			acc += uint64(v)
		}

		return acc
	case Width8:
		var acc uint64
		for _, v := range chunks[uint64](b) {
			acc += v
		}

		return acc
	case Width16:
		var acc [2]uint64
		c := chunks[[2]uint64](b)
		for i := range c {
			acc[0] += c[i][0]
			acc[1] += c[i][1]
		}

		return acc[0] + acc[1]
	case Width32:
		var acc [4]uint64
		c := chunks[[4]uint64](b)
		for i := range c {
			acc[0] += c[i][0]
			acc[1] += c[i][1]
			acc[2] += c[i][2]
			acc[3] += c[i][3]
		}

		return acc[0] + acc[1] + acc[2] + acc[3]
	case Width64:
		var acc [8]uint64
		c := chunks[[8]uint64](b)
		for i := range c {
			acc[0] += c[i][0]
			acc[1] += c[i][1]
			acc[2] += c[i][2]
			acc[3] += c[i][3]
			acc[4] += c[i][4]
			acc[5] += c[i][5]
			acc[6] += c[i][6]
			acc[7] += c[i][7]
		}

		return acc[0] + acc[1] + acc[2] + acc[3] + acc[4] + acc[5] + acc[6] + acc[7]
	default:
		panic(unsupported(w))
	}
}

// Fill stores Pattern into every byte of b: whole chunks first, then the
// trailing len(b)%w bytes one at a time.
func Fill(b []byte, w Width) {
	const p = lanePattern

	switch w {
	case WidthScalar:
		for i := range b {
			b[i] = Pattern
		}

		return
	case Width8:
		c := chunks[uint64](b)
		for i := range c {
			c[i] = p
		}
	case Width16:
		c := chunks[[2]uint64](b)
		for i := range c {
			c[i] = [2]uint64{p, p}
		}
	case Width32:
		c := chunks[[4]uint64](b)
		for i := range c {
			c[i] = [4]uint64{p, p, p, p}
		}
	case Width64:
		c := chunks[[8]uint64](b)
		for i := range c {
			c[i] = [8]uint64{p, p, p, p, p, p, p, p}
		}
	default:
		panic(unsupported(w))
	}

	for i := len(b) - len(b)%int(w); i < len(b); i++ {
		b[i] = Pattern
	}
}

// Copy transfers src into dst chunk by chunk, then copies the trailing
// len(src)%w bytes as a byte range. dst must be at least as long as src.
func Copy(dst, src []byte, w Width) {
	dst = dst[:len(src)]

	switch w {
	case WidthScalar:
		for i := range src {
			dst[i] = src[i]
		}

		return
	case Width8:
		s, d := chunks[uint64](src), chunks[uint64](dst)
		for i := range s {
			d[i] = s[i]
		}
	case Width16:
		s, d := chunks[[2]uint64](src), chunks[[2]uint64](dst)
		for i := range s {
			d[i] = s[i]
		}
	case Width32:
		s, d := chunks[[4]uint64](src), chunks[[4]uint64](dst)
		for i := range s {
			d[i] = s[i]
		}
	case Width64:
		s, d := chunks[[8]uint64](src), chunks[[8]uint64](dst)
		for i := range s {
			d[i] = s[i]
		}
	default:
		panic(unsupported(w))
	}

	tail := len(src) - len(src)%int(w)
	copy(dst[tail:], src[tail:])
}

func unsupported(w Width) string {
	return fmt.Sprintf("kernels: unsupported width %v", int(w))
}
