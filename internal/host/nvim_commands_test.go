package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-live-remark/internal/deck"
)

func TestBufferText(t *testing.T) {
	doc := deck.NewDocument("Intro\n---\nB\n---\nC")

	tests := []struct {
		name        string
		edit        deck.Edit
		startRow    int
		startCol    int
		endRow      int
		endCol      int
		replacement []string
	}{
		{
			name:        "new slide at end",
			edit:        deck.NewSlide(doc, 16),
			startRow:    4,
			startCol:    1,
			endRow:      4,
			endCol:      1,
			replacement: []string{"", "---", ""},
		},
		{
			name:        "new note before next slide",
			edit:        deck.NewNote(doc, 0),
			startRow:    1,
			startCol:    0,
			endRow:      1,
			endCol:      0,
			replacement: []string{"???", "", ""},
		},
		{
			name:        "kill middle slide",
			edit:        deck.KillSlide(doc, 10),
			startRow:    1,
			startCol:    0,
			endRow:      3,
			endCol:      0,
			replacement: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, sc, er, ec, repl := bufferText(doc, tt.edit)
			assert.Equal(t, tt.startRow, sr)
			assert.Equal(t, tt.startCol, sc)
			assert.Equal(t, tt.endRow, er)
			assert.Equal(t, tt.endCol, ec)

			lines := make([]string, len(repl))
			for i, l := range repl {
				lines[i] = string(l)
			}
			assert.Equal(t, tt.replacement, lines)
		})
	}
}
