package credentials

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pingcap/errors"
)

// LoadFile reads one credential per line from path.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "open credentials file")
	}
	defer f.Close()

	tokens, err := Read(f)
	if err != nil {
		return nil, errors.Annotatef(err, "read %s", path)
	}
	return tokens, nil
}

// Read parses newline-delimited credentials. Surrounding whitespace,
// including a trailing carriage return, is trimmed and blank lines are
// skipped.
func Read(r io.Reader) ([]string, error) {
	var tokens []string

	scanner := bufio.NewScanner(r)
	// tokens may exceed the default 64KiB line limit
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return tokens, nil
}
