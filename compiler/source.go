package compiler

import (
	"fmt"
	"os"
	"strings"
)

// SourceFile is a named unit of slate source text.
type SourceFile struct {
	Name string
	Text string

	lines []string
}

// NewSourceFile wraps text under the given display name.
func NewSourceFile(name, text string) *SourceFile {
	return &SourceFile{Name: name, Text: text}
}

// ReadSourceFile loads a source file from disk.
func ReadSourceFile(path string) (*SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewSourceFile(path, string(data)), nil
}

// Line returns the 1-based line n without its terminator, or "" when n is
// out of range.
func (f *SourceFile) Line(n int) string {
	if f.lines == nil {
		f.lines = strings.Split(f.Text, "\n")
	}
	if n < 1 || n > len(f.lines) {
		return ""
	}
	return strings.TrimSuffix(f.lines[n-1], "\r")
}
