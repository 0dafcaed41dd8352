package util

import (
	"fmt"
)

// SafeCall runs fn such that panics are recovered and nice error messages are
// constructed. panicked is true iff fn panicked.
func SafeCall(fn func() error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("Panic: %w\n%s", anErr, GetTrace())
			} else {
				err = fmt.Errorf("Panic: %v\n%s", r, GetTrace())
			}
		}
	}()
	err = fn()
	return
}
