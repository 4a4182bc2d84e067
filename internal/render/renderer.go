// Package render builds server-side views of a deck: a printable handout
// page and per-slide titles.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	alertcallouts "github.com/zmtcreative/gm-alert-callouts"

	"go-live-remark/internal/deck"
)

// Renderer is a wrapper around the Goldmark markdown parser with pre-configured extensions
type Renderer struct {
	md  goldmark.Markdown
	css string
}

//go:embed handout.html
var handoutTemplate string

// NewRenderer returns a renderer whose code blocks use CSS classes from the
// named chroma style. Unknown styles fall back to chroma's default.
func NewRenderer(style string) (*Renderer, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			alertcallouts.AlertCallouts,
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			extension.Linkify,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	var css bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&css, styles.Get(style)); err != nil {
		return nil, fmt.Errorf("highlight css: %w", err)
	}

	return &Renderer{md: md, css: css.String()}, nil
}

// ConvertSlide renders one slide body to an HTML fragment. Incremental
// separators are dropped so the fragment shows the slide's final state.
func (r *Renderer) ConvertSlide(content string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(stripIncrements(content)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHandout returns a complete HTML page with every visible slide and its
// notes. Layout and excluded slides are skipped.
func (r *Renderer) RenderHandout(doc deck.Document) (string, error) {
	var b strings.Builder
	for _, s := range deck.Slides(doc) {
		if s.IsLayout() || s.Properties["exclude"] == "true" {
			continue
		}

		body, err := r.ConvertSlide(s.Content)
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.Number, err)
		}

		n := strconv.Itoa(s.Number)
		b.WriteString(`<section class="slide`)
		for _, class := range strings.FieldsFunc(s.Properties["class"], isClassSep) {
			b.WriteString(" " + class)
		}
		b.WriteString(`" id="slide-` + n + `" data-slide="` + n + `">`)
		b.WriteString(`<span class="slide-number">` + n + `</span>`)
		b.WriteString(body)

		if s.Notes != "" {
			notes, err := r.ConvertSlide(s.Notes)
			if err != nil {
				return "", fmt.Errorf("slide %d notes: %w", s.Number, err)
			}
			b.WriteString(`<aside class="notes">`)
			b.WriteString(notes)
			b.WriteString(`</aside>`)
		}
		b.WriteString("</section>\n")
	}

	page := strings.Replace(handoutTemplate, "{{CSS}}", r.css, 1)
	return strings.Replace(page, "{{CONTENT}}", b.String(), 1), nil
}

// Title returns the text of the first heading of a slide body, or "" when it
// has none.
func (r *Renderer) Title(content string) string {
	source := []byte(content)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title = headingText(h, source)
		return ast.WalkStop, nil
	})
	return title
}

func headingText(h *ast.Heading, source []byte) string {
	lines := h.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		parts = append(parts, strings.TrimSpace(string(seg.Value(source))))
	}
	return strings.Join(parts, " ")
}

func stripIncrements(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) == deck.KindIncremental.Token() {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func isClassSep(r rune) bool {
	return r == ',' || r == ' '
}
