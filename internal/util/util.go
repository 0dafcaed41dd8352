package util

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// GetTrace produces the string representation of a stack trace
func GetTrace() string {
	var name, file string
	var line int
	var pc [16]uintptr
	var res strings.Builder
	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			fmt.Fprintf(&res, "%s\n\t%s:%d\n", name, file, line)
		}
	}
	return res.String()
}

// FormatMultiError formats the errors collected in a multierror as a
// numbered list, one error per line
func FormatMultiError(merrs []error) string {
	var res strings.Builder
	fmt.Fprintf(&res, "%d error(s) occurred:\n", len(merrs))
	for i, err := range merrs {
		fmt.Fprintf(&res, "\t%d. %v\n", i+1, err)
	}
	return res.String()
}

// Backoff computes an exponential delay for the given attempt (starting at
// 1), doubling base for each attempt and never exceeding max
func Backoff(base time.Duration, max time.Duration, attempt int) time.Duration {
	if attempt < 1 || base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
