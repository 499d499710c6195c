// Package source provides source text handling for the Vesper frontend:
// immutable file buffers, byte offset to line/column mapping, and the
// loader collaborator used by cross-file import resolution.
package source

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// Position represents a single point in source text
type Position struct {
	Filename string // Source file name
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Offset   int    // 0-based byte offset in source
}

// IsValid returns true if the position is valid
func (p Position) IsValid() bool {
	return p.Line > 0 && p.Column > 0 && p.Offset >= 0
}

// String returns a string representation of the position
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", filepath.Base(p.Filename), p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before returns true if this position comes before other
func (p Position) Before(other Position) bool {
	if p.Filename != other.Filename {
		return p.Filename < other.Filename
	}
	return p.Offset < other.Offset
}

// Span represents a range of source text between two positions
type Span struct {
	Start Position // Starting position (inclusive)
	End   Position // Ending position (exclusive)
}

// IsValid returns true if the span is valid
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid() &&
		s.Start.Filename == s.End.Filename &&
		s.Start.Offset <= s.End.Offset
}

// String returns a string representation of the span
func (s Span) String() string {
	if s.Start.Filename != "" {
		filename := filepath.Base(s.Start.Filename)
		if s.Start.Line == s.End.Line {
			return fmt.Sprintf("%s:%d:%d-%d", filename, s.Start.Line, s.Start.Column, s.End.Column)
		}
		return fmt.Sprintf("%s:%d:%d-%d:%d", filename, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
	}

	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%d:%d-%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Union returns a span that encompasses both this span and other
func (s Span) Union(other Span) Span {
	if !s.IsValid() {
		return other
	}
	if !other.IsValid() {
		return s
	}
	if s.Start.Filename != other.Start.Filename {
		return s
	}

	start := s.Start
	if other.Start.Before(start) {
		start = other.Start
	}

	end := s.End
	if end.Before(other.End) {
		end = other.End
	}

	return Span{Start: start, End: end}
}

// Length returns the length of the span in bytes
func (s Span) Length() int {
	if !s.IsValid() {
		return 0
	}
	return s.End.Offset - s.Start.Offset
}

// File is an immutable source buffer with precomputed line starts.
// Dir is the directory imports from this file resolve against, and
// Checksum identifies the content for cache invalidation.
type File struct {
	Name     string // File path as given to the loader
	Dir      string // Directory for relative import resolution
	Content  string // Source text
	Checksum uint64 // xxh3 hash of Content

	lineStarts []int // Byte offset of each line start
}

// NewFile creates a source file from content. The line start table and
// content checksum are computed once here.
func NewFile(name, content string) *File {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &File{
		Name:       name,
		Dir:        filepath.Dir(name),
		Content:    content,
		Checksum:   xxh3.Hash([]byte(content)),
		lineStarts: starts,
	}
}

// PositionAt converts a byte offset to a Position. Offsets past the end
// of the buffer clamp to the final position.
func (f *File) PositionAt(offset int) Position {
	if offset < 0 {
		return Position{}
	}
	if offset > len(f.Content) {
		offset = len(f.Content)
	}

	// First line whose start is after offset; the line containing
	// offset is the one before it.
	line := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	})

	return Position{
		Filename: f.Name,
		Line:     line,
		Column:   offset - f.lineStarts[line-1] + 1,
		Offset:   offset,
	}
}

// SpanBetween builds the span covering [start, end) byte offsets.
func (f *File) SpanBetween(start, end int) Span {
	return Span{Start: f.PositionAt(start), End: f.PositionAt(end)}
}

// NumLines returns the number of lines in the file
func (f *File) NumLines() int {
	return len(f.lineStarts)
}

// Line returns the specified line (1-based) without its terminator, or
// empty string if the line number is out of range
func (f *File) Line(lineNum int) string {
	if lineNum < 1 || lineNum > len(f.lineStarts) {
		return ""
	}

	start := f.lineStarts[lineNum-1]
	end := len(f.Content)
	if lineNum < len(f.lineStarts) {
		end = f.lineStarts[lineNum] - 1
	}

	return strings.TrimSuffix(f.Content[start:end], "\r")
}

// Slice returns the text covered by the span
func (f *File) Slice(span Span) string {
	if !span.IsValid() || span.End.Offset > len(f.Content) {
		return ""
	}
	return f.Content[span.Start.Offset:span.End.Offset]
}
