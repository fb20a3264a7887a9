package media

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

var vttTagRe = regexp.MustCompile(`<[^>]+>`)

// VTTToText flattens a WebVTT subtitle file into plain text. Cue timings and
// inline tags are dropped, and lines repeated across consecutive cues are
// collapsed to one occurrence.
func VTTToText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		if strings.Contains(line, "-->") {
			continue
		}
		lines = append(lines, vttTagRe.ReplaceAllString(line, ""))
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	var cleaned []string
	last := ""
	for i, line := range lines {
		if i == 0 || line != last {
			cleaned = append(cleaned, line)
		}
		last = line
	}
	return strings.TrimSpace(strings.Join(cleaned, " ")), nil
}
