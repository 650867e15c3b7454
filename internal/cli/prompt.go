package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadLine prints label and reads one trimmed line. It returns io.EOF when
// input is exhausted with nothing typed.
func ReadLine(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	input, err := r.ReadString('\n')
	input = strings.TrimSpace(input)
	if err != nil && input == "" {
		return "", err
	}
	return input, nil
}

// IsQuit reports whether line asks to leave an interactive loop.
func IsQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", "/exit", "/quit", ":q":
		return true
	}
	return false
}
