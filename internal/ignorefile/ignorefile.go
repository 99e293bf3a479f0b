// Package ignorefile parses and transforms the line-oriented ignore
// target. Comments and blank lines are preserved verbatim; transforms
// are pure and return a new File, so previews can never mutate state.
package ignorefile

import (
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// File is the parsed ignore file.
type File struct {
	lines           []string
	trailingNewline bool
}

// Parse splits raw bytes into lines, keeping comments and blanks.
func Parse(data []byte) *File {
	s := string(data)
	trailing := strings.HasSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\n")
	var lines []string
	if s != "" {
		lines = strings.Split(s, "\n")
	}
	return &File{lines: lines, trailingNewline: trailing || len(lines) == 0}
}

// Render serializes the file back to bytes.
func (f *File) Render() []byte {
	if len(f.lines) == 0 {
		return []byte{}
	}
	out := strings.Join(f.lines, "\n")
	if f.trailingNewline {
		out += "\n"
	}
	return []byte(out)
}

// Lines returns a copy of all lines, comments included.
func (f *File) Lines() []string {
	return append([]string(nil), f.lines...)
}

// Patterns returns the meaningful pattern lines.
func (f *File) Patterns() []string {
	var out []string
	for _, line := range f.lines {
		if p := strings.TrimSpace(line); p != "" && !strings.HasPrefix(p, "#") {
			out = append(out, p)
		}
	}
	return out
}

// Deduplicate returns a copy with duplicate pattern lines removed,
// keeping the first occurrence. Comments and blanks pass through.
// Idempotent: deduplicating twice equals deduplicating once.
func (f *File) Deduplicate() *File {
	seen := make(map[string]bool)
	out := &File{trailingNewline: f.trailingNewline}
	for _, line := range f.lines {
		p := strings.TrimSpace(line)
		if p == "" || strings.HasPrefix(p, "#") {
			out.lines = append(out.lines, line)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out.lines = append(out.lines, line)
	}
	return out
}

// Append returns a copy with the given patterns added at the end,
// skipping any already present verbatim.
func (f *File) Append(patterns []string) *File {
	existing := make(map[string]bool)
	for _, p := range f.Patterns() {
		existing[p] = true
	}
	out := &File{
		lines:           append([]string(nil), f.lines...),
		trailingNewline: true,
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || existing[p] {
			continue
		}
		existing[p] = true
		out.lines = append(out.lines, p)
	}
	return out
}

// Covers reports whether path is already matched by the file's
// patterns under gitignore semantics. Used to drop candidate patterns
// whose paths an existing broader pattern already ignores.
func (f *File) Covers(path string, isDir bool) bool {
	patterns := make([]gitignore.Pattern, 0, len(f.lines))
	for _, p := range f.Patterns() {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	if len(patterns) == 0 {
		return false
	}
	matcher := gitignore.NewMatcher(patterns)
	return matcher.Match(splitPath(path), isDir)
}

// splitPath converts a slash-separated path into components for the
// go-git matcher.
func splitPath(path string) []string {
	path = strings.TrimPrefix(strings.TrimSuffix(path, "/"), "/")
	if path == "" || path == "." {
		return nil
	}
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}
