package crawler

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadSeeds loads seed URLs from a file, one per line. Blank lines and
// #-comments are skipped and duplicates collapse, preserving first-seen
// order.
func ReadSeeds(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var seeds []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			seeds = append(seeds, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan seed file: %w", err)
	}
	return seeds, nil
}
