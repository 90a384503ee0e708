package domain

import "strings"

// Package is the index's view of one project: its metadata and the files of
// every known release. Local reports whether the data came from this index
// or from an upstream proxy.
type Package struct {
	Name     string    `json:"name"`
	Summary  string    `json:"summary,omitempty"`
	Releases []Release `json:"releases"`
	Local    bool      `json:"local"`
}

// Release is one published version of a package.
type Release struct {
	Version string      `json:"version"`
	Files   []FileEntry `json:"files"`
}

// FileEntry is one downloadable artifact of a release.
type FileEntry struct {
	Filename string            `json:"filename"`
	URL      string            `json:"url"`
	Hashes   map[string]string `json:"hashes,omitempty"`
	Size     int64             `json:"size,omitempty"`
}

// NormalizeProjectName lowercases a project name and collapses every run of
// dots, hyphens, and underscores into a single hyphen, so lookups are
// insensitive to the usual spelling variants.
func NormalizeProjectName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	run := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			run = true
			continue
		}
		if run {
			b.WriteByte('-')
			run = false
		}
		b.WriteRune(r)
	}
	if run {
		b.WriteByte('-')
	}
	return b.String()
}
