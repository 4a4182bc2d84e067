package deck

import (
	"regexp"
	"strings"
)

var propertyLine = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*):\s*(.*?)\s*$`)

// Slide is one span of the deck between "---" separators.
type Slide struct {
	// Number is the slide number the locator reports for the first body line.
	Number int
	// Start is the offset of the separator line, or 0 for the first slide.
	Start int
	// End is the offset of the next separator line or the document end.
	End int
	// Properties are the leading "key: value" lines of the slide.
	Properties map[string]string
	// Content is the slide body without properties and notes.
	Content string
	// Notes is the text after the first "???" separator.
	Notes string
}

// IsLayout reports whether the slide is a layout template rather than a
// visible slide.
func (s Slide) IsLayout() bool {
	return s.Properties["layout"] == "true"
}

// Slides splits the document on "---" separators.
func Slides(doc Document) []Slide {
	var (
		slides []Slide
		body   []string
		start  int
		offset int
	)
	flush := func(end int) {
		s := parseSlide(body)
		s.Start = start
		s.End = end
		bodyStart := start
		if start > 0 || doc.hasLinePrefix(0, slideToken) {
			bodyStart = doc.NextLineStart(start)
		}
		s.Number = SlideAt(doc, bodyStart)
		slides = append(slides, s)
	}

	for i, line := range doc.Lines() {
		if strings.HasPrefix(line, slideToken) {
			if i > 0 {
				flush(offset)
			}
			start = offset
			body = nil
		} else {
			body = append(body, line)
		}
		offset += len(line) + 1
	}
	flush(doc.Len())
	return slides
}

func parseSlide(lines []string) Slide {
	s := Slide{Properties: map[string]string{}}
	i := 0
	for ; i < len(lines); i++ {
		m := propertyLine.FindStringSubmatch(lines[i])
		if m == nil {
			break
		}
		s.Properties[m[1]] = m[2]
	}

	var content, notes []string
	inNotes := false
	for _, line := range lines[i:] {
		if !inNotes && strings.HasPrefix(line, noteToken) {
			inNotes = true
			continue
		}
		if inNotes {
			notes = append(notes, line)
		} else {
			content = append(content, line)
		}
	}
	s.Content = strings.Trim(strings.Join(content, "\n"), "\n")
	s.Notes = strings.Trim(strings.Join(notes, "\n"), "\n")
	return s
}
