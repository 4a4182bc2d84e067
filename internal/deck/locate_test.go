package deck

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected int
	}{
		{"empty prefix", nil, 1},
		{"single empty line", []string{""}, 1},
		{"one separator", []string{"Intro", "---", "B"}, 2},
		{"two separators", []string{"Intro", "---", "B", "---", "C"}, 3},
		{"layout pragma cancels first separator", []string{"layout: true", "---", "Slide1", "---", "Slide2"}, 2},
		{"layout pragma alone clamps to one", []string{"layout: true"}, 1},
		{"two pragmas clamp", []string{"layout: true", "layout: true", "---"}, 1},
		{"mid-document pragma", []string{"A", "---", "B", "---", "layout: true", "---", "C"}, 3},
		{"incremental does not count", []string{"A", "--", "B", "--"}, 1},
		{"note does not count", []string{"A", "???", "notes"}, 1},
		{"longer dashes count", []string{"A", "-----"}, 2},
		{"indented separator does not count", []string{"A", " ---"}, 1},
		{"pragma with trailing text", []string{"layout: true # shared", "---", "B"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Locate(tt.lines))
		})
	}
}

func TestSlideAtScenarios(t *testing.T) {
	t.Run("third slide", func(t *testing.T) {
		doc := NewDocument("Intro\n---\nB\n---\nC")
		assert.Equal(t, 3, SlideAt(doc, strings.Index(doc.String(), "C")+1))
	})

	t.Run("layout pragma", func(t *testing.T) {
		doc := NewDocument("layout: true\n---\nSlide1\n---\nSlide2")
		assert.Equal(t, 2, SlideAt(doc, strings.Index(doc.String(), "Slide2")+3))
	})

	t.Run("empty document", func(t *testing.T) {
		assert.Equal(t, 1, SlideAt(NewDocument(""), 0))
	})

	t.Run("cursor at separator line start belongs to previous slide", func(t *testing.T) {
		doc := NewDocument("A\n---\nB")
		assert.Equal(t, 1, SlideAt(doc, 2))
		assert.Equal(t, 2, SlideAt(doc, 5))
	})

	t.Run("out of range offsets clamp", func(t *testing.T) {
		doc := NewDocument("A\n---\nB")
		assert.Equal(t, 1, SlideAt(doc, -10))
		assert.Equal(t, 2, SlideAt(doc, 1000))
	})
}

func TestSlideAtProperties(t *testing.T) {
	docs := []string{
		"",
		"Intro\n---\nB\n---\nC",
		"layout: true\n---\nSlide1\n---\nSlide2",
		"---\nA\n--\nA2\n???\nnotes\n---\nB\n",
		"A\n---\nlayout: true\n---\nB\n---\nlayout: true\nC",
	}

	for _, text := range docs {
		doc := NewDocument(text)
		for c := 0; c <= doc.Len(); c++ {
			assert.GreaterOrEqual(t, SlideAt(doc, c), 1, "doc %q offset %d", text, c)
		}
	}
}

func TestLocateMonotonicAcrossSeparators(t *testing.T) {
	doc := NewDocument("A\n---\nB\n---\nC\n---\nD")
	prev := 1
	for c := 0; c <= doc.Len(); c++ {
		got := SlideAt(doc, c)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 4, prev)
}

func TestLocateDropsAcrossLayoutPragma(t *testing.T) {
	doc := NewDocument("A\n---\nB\n---\nlayout: true\nC")
	before := SlideAt(doc, strings.Index(doc.String(), "layout"))
	after := SlideAt(doc, strings.Index(doc.String(), "C"))
	assert.Equal(t, 3, before)
	assert.Equal(t, before-1, after)
}

func TestSlideStart(t *testing.T) {
	doc := NewDocument("Intro\n---\nB\n---\nC")

	at, ok := SlideStart(doc, 1)
	require.True(t, ok)
	assert.Equal(t, 0, at)

	at, ok = SlideStart(doc, 2)
	require.True(t, ok)
	assert.Equal(t, strings.Index(doc.String(), "B"), at)

	at, ok = SlideStart(doc, 3)
	require.True(t, ok)
	assert.Equal(t, strings.Index(doc.String(), "C"), at)

	_, ok = SlideStart(doc, 4)
	assert.False(t, ok)

	for n := 1; n <= 3; n++ {
		at, _ := SlideStart(doc, n)
		assert.Equal(t, n, SlideAt(doc, at))
	}
}
