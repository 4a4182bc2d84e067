package deck

import "strings"

// Locate maps the lines preceding a cursor to a 1-based slide number.
//
// Every line starting with "---" adds one slide. A line starting with
// "layout: true" subtracts one: remark emits the layout slide as a template
// rather than a visible slide, so the separator that closes it must not be
// counted. Incremental ("--") and note ("???") separators stay inside the
// enclosing slide and never count.
func Locate(prefixLines []string) int {
	acc := 1
	for _, line := range prefixLines {
		acc += lineWeight(line)
	}
	return max(1, acc)
}

func lineWeight(line string) int {
	switch {
	case strings.HasPrefix(line, layoutPragma):
		return -1
	case strings.HasPrefix(line, slideToken):
		return 1
	default:
		return 0
	}
}

// SlideAt returns the slide number the cursor at offset belongs to.
func SlideAt(doc Document, offset int) int {
	return Locate(doc.PrefixLines(offset))
}

// SlideStart returns the first line-start offset whose slide number is n.
// It reports false when no line of the document falls on slide n.
func SlideStart(doc Document, n int) (int, bool) {
	acc := 1
	offset := 0
	for _, line := range doc.Lines() {
		if max(1, acc) == n {
			return offset, true
		}
		acc += lineWeight(line)
		offset += len(line) + 1
	}
	// A trailing separator opens a slide with no lines yet.
	if max(1, acc) == n {
		return doc.Len(), true
	}
	return 0, false
}
