package deck

// Edit is a single replacement request against a Document. The host applies
// it to its own buffer and moves the cursor to Cursor afterwards.
type Edit struct {
	Start  int
	End    int
	Text   string
	Cursor int
}

// Apply returns the document with the edit performed.
func (e Edit) Apply(doc Document) Document {
	start, end := doc.clamp(e.Start), doc.clamp(e.End)
	return Document{text: doc.text[:start] + e.Text + doc.text[end:]}
}

// NextSlide moves past the current line and lands on the start of the next
// slide separator, or on the document end when there is none.
func NextSlide(doc Document, cursor int) int {
	from := doc.LineEnd(cursor)
	if at, ok := doc.searchForward(from, slideToken); ok {
		return at
	}
	return doc.Len()
}

// PrevSlide lands on the start of the closest slide separator before the
// cursor, or on the document start when there is none.
func PrevSlide(doc Document, cursor int) int {
	if at, ok := doc.searchBackward(cursor, slideToken); ok {
		return at
	}
	return 0
}

// InsertSeparator opens a new slide, incremental step or note after the
// slide holding the cursor. The cursor ends in the empty body created
// between the new separator and whatever follows it.
func InsertSeparator(doc Document, cursor int, kind Kind) Edit {
	token := kind.Token()
	at := NextSlide(doc, cursor)
	if at == doc.Len() {
		text := "\n" + token + "\n"
		return Edit{Start: at, End: at, Text: text, Cursor: at + len(text)}
	}
	return Edit{
		Start:  at,
		End:    at,
		Text:   token + "\n\n",
		Cursor: at + len(token) + 1,
	}
}

func NewSlide(doc Document, cursor int) Edit {
	return InsertSeparator(doc, cursor, KindSlide)
}

func NewIncrementalSlide(doc Document, cursor int) Edit {
	return InsertSeparator(doc, cursor, KindIncremental)
}

func NewNote(doc Document, cursor int) Edit {
	return InsertSeparator(doc, cursor, KindNote)
}

// KillSlide deletes the slide holding the cursor together with its leading
// separator. The following separator, if any, is kept.
func KillSlide(doc Document, cursor int) Edit {
	start := PrevSlide(doc, cursor)
	end := doc.Len()
	if at, ok := doc.searchForward(doc.NextLineStart(start), slideToken); ok {
		end = at
	}
	return Edit{Start: start, End: end, Cursor: start}
}
