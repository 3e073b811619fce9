package cli

import (
	"fmt"
	"strings"
	"testing"
)

// captureOutput replaces printlnFn for the duration of the test.
func captureOutput(t *testing.T) *strings.Builder {
	t.Helper()
	var sb strings.Builder
	old := printlnFn
	printlnFn = func(a ...any) (int, error) {
		return fmt.Fprintln(&sb, a...)
	}
	t.Cleanup(func() { printlnFn = old })
	return &sb
}
