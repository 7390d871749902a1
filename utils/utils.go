// Package utils holds small helpers shared by the commands.
package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands tilde and all environment variables from the given path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// ParseRanges parses a 1-based list like "1,3-5" into sorted, unique,
// 0-based indices below n. An empty list selects everything.
func ParseRanges(list string, n int) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, &RangeError{Part: part}
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, &RangeError{Part: part}
			}
		}
		if from < 1 || to < from || to > n {
			return nil, &RangeError{Part: part, Max: n}
		}
		for i := from; i <= to; i++ {
			seen[i-1] = true
		}
	}

	out := make([]int, 0, len(seen))
	for i := 0; i < n; i++ {
		if seen[i] {
			out = append(out, i)
		}
	}
	return out, nil
}

// RangeError reports an invalid entry in a chapter list.
type RangeError struct {
	Part string
	Max  int
}

func (e *RangeError) Error() string {
	if e.Max > 0 {
		return "chapter range " + strconv.Quote(e.Part) + " is outside 1-" + strconv.Itoa(e.Max)
	}
	return "invalid chapter range " + strconv.Quote(e.Part)
}
