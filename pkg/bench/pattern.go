package bench

import (
	"errors"
	"fmt"
)

var ErrUnknownPattern = errors.New("unknown access pattern")

type Pattern string

const (
	PatternRead  Pattern = "read"
	PatternWrite Pattern = "write"
	PatternCopy  Pattern = "copy"
)

func Patterns() []Pattern {
	return []Pattern{PatternRead, PatternWrite, PatternCopy}
}

func ParsePattern(s string) (Pattern, error) {
	for _, p := range Patterns() {
		if string(p) == s {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownPattern, s)
}
