package luaparse

import (
	"strings"
	"unicode"
)

// Position is a 0-based line/column pair.
type Position struct {
	Line   int
	Column int
}

// Document wraps immutable source text with line-index and offset
// conversions. All derived data is computed once at construction.
type Document struct {
	text       string
	lineStarts []int
	comments   []Range
}

// NewDocument builds a Document for the given text. Comment ranges come from
// the parser and may be nil.
func NewDocument(text string, comments []Range) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{text: text, lineStarts: starts, comments: comments}
}

// Text returns the full source text.
func (d *Document) Text() string { return d.text }

// ByteLen returns the total length of the source in bytes.
func (d *Document) ByteLen() int { return len(d.text) }

// LineCount returns the number of lines in the document. A trailing newline
// terminates the last line rather than opening an empty one, so "a\nb\n" has
// two lines.
func (d *Document) LineCount() int {
	n := len(d.lineStarts)
	if n > 1 && d.lineStarts[n-1] == len(d.text) {
		n--
	}
	return n
}

// Line returns the text of a 0-based line index without its trailing
// newline. Out-of-range indexes return "".
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lineStarts) {
		return ""
	}
	start := d.lineStarts[i]
	end := len(d.text)
	if i+1 < len(d.lineStarts) {
		end = d.lineStarts[i+1]
	}
	return strings.TrimRight(d.text[start:end], "\r\n")
}

// OffsetToPosition converts a byte offset to a 0-based line/column.
// Offsets past the end clamp to the final position.
func (d *Document) OffsetToPosition(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	// Binary search for the line containing offset.
	lo, hi := 0, len(d.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Position{Line: lo, Column: offset - d.lineStarts[lo]}
}

// PositionToOffset converts a 0-based line/column to a byte offset, clamping
// to valid bounds.
func (d *Document) PositionToOffset(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(d.lineStarts) {
		return len(d.text)
	}
	offset := d.lineStarts[p.Line] + p.Column
	lineEnd := len(d.text)
	if p.Line+1 < len(d.lineStarts) {
		lineEnd = d.lineStarts[p.Line+1]
	}
	if offset > lineEnd {
		offset = lineEnd
	}
	return offset
}

// InComment reports whether the offset falls inside a parsed comment.
func (d *Document) InComment(offset int) bool {
	for _, r := range d.comments {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}

// Comments returns the parsed comment ranges.
func (d *Document) Comments() []Range { return d.comments }

func isWordByte(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}

// WordAt returns the identifier-like word surrounding the offset and its
// range. Returns "" when the offset does not touch a word.
func (d *Document) WordAt(offset int) (string, Range) {
	if offset < 0 || offset > len(d.text) {
		return "", Range{}
	}
	start := offset
	for start > 0 && isWordByte(d.text[start-1]) {
		start--
	}
	end := offset
	for end < len(d.text) && isWordByte(d.text[end]) {
		end++
	}
	if start == end {
		return "", Range{}
	}
	return d.text[start:end], Range{Start: start, End: end}
}

// WordBefore returns the partial word immediately preceding the offset,
// used to decide whether a completion request has a current word.
func (d *Document) WordBefore(offset int) string {
	if offset > len(d.text) {
		offset = len(d.text)
	}
	start := offset
	for start > 0 && isWordByte(d.text[start-1]) {
		start--
	}
	return d.text[start:offset]
}
