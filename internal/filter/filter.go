// Package filter loads XPath filter files for tracked-field selection.
package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load reads one UTF-8 filter file: one XPath per line, blank lines ignored,
// lines starting with "--" are comments. A "--" later in the line is part of
// the XPath, since XML names may contain hyphens.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening filter file %s: %w", path, err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading filter file %s: %w", path, err)
	}
	return entries, nil
}
