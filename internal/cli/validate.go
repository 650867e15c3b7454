package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chatcut/chatcut/internal/action"
)

// ResolveMediaPaths makes every path absolute, since the backend may run
// from a different working directory. Existence is checked by the backend
// so the result carries the proper error code.
func ResolveMediaPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// ExitCode maps a result to a process exit status: 0 for success, 2 for
// results that ask the user for more input, 1 for everything else.
func ExitCode(code string) int {
	switch code {
	case "":
		return 0
	case action.CodeSmallTalk, action.CodeNeedsSpecification, action.CodeNeedsSelection:
		return 2
	default:
		return 1
	}
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
