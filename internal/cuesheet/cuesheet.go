// Package cuesheet extracts file references from cue sheets and m3u playlists.
package cuesheet

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// fileDirective matches FILE "name" BINARY anywhere on a line.
var fileDirective = regexp.MustCompile(`(?i)\bFILE\s+"([^"]+)"\s+BINARY\b`)

// References returns the file names referenced by FILE ... BINARY lines, in
// order of first appearance. A sheet without such lines yields nil.
func References(text string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, line := range lines(text) {
		for _, m := range fileDirective.FindAllStringSubmatch(line, -1) {
			name := strings.TrimSpace(m[1])
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}

// PlaylistEntries returns every non-empty line that is not a # comment,
// trimmed.
func PlaylistEntries(text string) []string {
	var entries []string
	for _, line := range lines(text) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

// ReadReferences parses the cue sheet at path.
func ReadReferences(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cue sheet: %w", err)
	}
	return References(string(data)), nil
}

// ReadPlaylist parses the playlist at path.
func ReadPlaylist(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	return PlaylistEntries(string(data)), nil
}

func lines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	var out []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out = append(out, strings.TrimRight(sc.Text(), "\r"))
	}
	return out
}
