// Package deck models a remark slide deck held as a single text document.
// Slides are implicit: they are the spans between separator lines.
package deck

import "strings"

// Kind identifies one of the three separator tokens.
type Kind int

const (
	// KindSlide starts a new slide.
	KindSlide Kind = iota
	// KindIncremental continues the current slide with an extra step.
	KindIncremental
	// KindNote starts the speaker notes of the current slide.
	KindNote
)

const (
	slideToken       = "---"
	incrementalToken = "--"
	noteToken        = "???"
	layoutPragma     = "layout: true"
)

// Token returns the literal separator text for the kind.
func (k Kind) Token() string {
	switch k {
	case KindIncremental:
		return incrementalToken
	case KindNote:
		return noteToken
	default:
		return slideToken
	}
}

func (k Kind) String() string {
	switch k {
	case KindSlide:
		return "slide"
	case KindIncremental:
		return "incremental"
	case KindNote:
		return "note"
	default:
		return "unknown"
	}
}

// Document is an immutable snapshot of the deck text. Offsets are byte
// offsets and every accessor clamps them to [0, Len()].
type Document struct {
	text string
}

func NewDocument(text string) Document {
	return Document{text: text}
}

// FromLines joins buffer lines the way Neovim reports them.
func FromLines(lines [][]byte) Document {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = string(l)
	}
	return Document{text: strings.Join(parts, "\n")}
}

func (d Document) String() string { return d.text }

func (d Document) Len() int { return len(d.text) }

func (d Document) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(d.text) {
		return len(d.text)
	}
	return offset
}

// Prefix returns the text from the start of the document up to offset.
func (d Document) Prefix(offset int) string {
	return d.text[:d.clamp(offset)]
}

// Lines returns the document split on newlines. An empty document has one
// empty line.
func (d Document) Lines() []string {
	return strings.Split(d.text, "\n")
}

// PrefixLines returns the lines of Prefix(offset). The last element is the
// partial line the offset sits in.
func (d Document) PrefixLines(offset int) []string {
	return strings.Split(d.Prefix(offset), "\n")
}

// LineStart returns the offset of the first byte of the line holding offset.
func (d Document) LineStart(offset int) int {
	offset = d.clamp(offset)
	return strings.LastIndexByte(d.text[:offset], '\n') + 1
}

// LineEnd returns the offset of the newline ending the line holding offset,
// or the document end for the last line.
func (d Document) LineEnd(offset int) int {
	offset = d.clamp(offset)
	i := strings.IndexByte(d.text[offset:], '\n')
	if i < 0 {
		return len(d.text)
	}
	return offset + i
}

// NextLineStart returns the start of the line after the one holding offset,
// or the document end when offset is on the last line.
func (d Document) NextLineStart(offset int) int {
	end := d.LineEnd(offset)
	if end == len(d.text) {
		return end
	}
	return end + 1
}

// Position converts offset to a 1-based row and a 0-based byte column.
func (d Document) Position(offset int) (row, col int) {
	offset = d.clamp(offset)
	row = strings.Count(d.text[:offset], "\n") + 1
	return row, offset - d.LineStart(offset)
}

// Offset converts a 1-based row and 0-based byte column back to an offset.
// Rows past the end clamp to the document end and columns clamp to the line.
func (d Document) Offset(row, col int) int {
	if row < 1 {
		return 0
	}
	start := 0
	for r := 1; r < row; r++ {
		i := strings.IndexByte(d.text[start:], '\n')
		if i < 0 {
			return len(d.text)
		}
		start += i + 1
	}
	end := d.LineEnd(start)
	if col < 0 {
		col = 0
	}
	if start+col > end {
		return end
	}
	return start + col
}

// hasLinePrefix reports whether a line starting with token begins at offset.
func (d Document) hasLinePrefix(offset int, token string) bool {
	if offset > 0 && d.text[offset-1] != '\n' {
		return false
	}
	return strings.HasPrefix(d.text[offset:], token)
}

// searchForward returns the start of the first line at or after from that
// begins with token.
func (d Document) searchForward(from int, token string) (int, bool) {
	from = d.clamp(from)
	if d.hasLinePrefix(from, token) {
		return from, true
	}
	i := strings.Index(d.text[from:], "\n"+token)
	if i < 0 {
		return 0, false
	}
	return from + i + 1, true
}

// searchBackward returns the start of the last line beginning with token
// whose token ends at or before limit.
func (d Document) searchBackward(limit int, token string) (int, bool) {
	text := d.text[:d.clamp(limit)]
	for {
		i := strings.LastIndex(text, token)
		if i < 0 {
			return 0, false
		}
		if i == 0 || text[i-1] == '\n' {
			return i, true
		}
		text = text[:i+len(token)-1]
	}
}
