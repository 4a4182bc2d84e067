package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go-live-remark/internal/config"
	"go-live-remark/internal/contracts"
	"go-live-remark/internal/deck"
	"go-live-remark/internal/livesync"
	"go-live-remark/internal/preview"
	"go-live-remark/internal/render"
	httptransport "go-live-remark/internal/transport/http"
)

// ErrNoLiveSession is returned by OnSave when no preview is running. The
// document itself is still saved by the editor.
var ErrNoLiveSession = errors.New("no live remark session")

// Preview is the browser side of a live session.
type Preview interface {
	livesync.Adapter
	Start() error
	Stop() error
	URL() string
	SetSlideShownHandler(fn func(contracts.SlideShownMessage))
}

// PreviewFactory builds the preview for a new session.
type PreviewFactory func(addr, artifactPath, assetDir string, handout httptransport.HandoutFunc) Preview

func newHTTPPreview(addr, artifactPath, assetDir string, handout httptransport.HandoutFunc) Preview {
	return httptransport.NewPreviewServer(addr, artifactPath, assetDir, handout)
}

// Session is a coordinator between the deck, the sync scheduler and the
// preview. It is the entry point for every editor event.
type Session struct {
	mu sync.Mutex

	cfg        *config.Config
	deckPath   string
	renderer   *render.Renderer
	newPreview PreviewFactory
	afterFunc  livesync.AfterFunc

	preview   Preview
	scheduler *livesync.Scheduler
	watcher   *preview.TemplateWatcher
	template  string
	lastSaved deck.Document

	slideShownMu sync.RWMutex
	onSlideShown func(slide int)
}

type Option func(*Session)

// WithPreviewFactory replaces the HTTP preview, mainly for tests.
func WithPreviewFactory(fn PreviewFactory) Option {
	return func(s *Session) { s.newPreview = fn }
}

// WithAfterFunc replaces the scheduler's timer factory.
func WithAfterFunc(fn livesync.AfterFunc) Option {
	return func(s *Session) { s.afterFunc = fn }
}

// NewSession prepares a session for the deck at deckPath. Nothing runs until
// Start.
func NewSession(cfg *config.Config, deckPath string, opts ...Option) (*Session, error) {
	renderer, err := render.NewRenderer(cfg.HighlightStyle)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:        cfg,
		deckPath:   deckPath,
		renderer:   renderer,
		newPreview: newHTTPPreview,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OutputPath is where the materialized page is written.
func (s *Session) OutputPath() string {
	return preview.OutputPath(s.cfg.OutputDir)
}

// DeckPath returns the path of the deck the session was created for.
func (s *Session) DeckPath() string {
	return s.deckPath
}

// Start launches the preview and publishes doc. It returns the preview URL.
func (s *Session) Start(doc deck.Document) (string, error) {
	url, err := s.start(doc)
	if err != nil {
		s.Stop()
		return "", err
	}
	return url, nil
}

func (s *Session) start(doc deck.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active() {
		return s.preview.URL(), nil
	}

	tmpl, err := preview.LoadTemplate(s.cfg.Template)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	p := s.newPreview(s.cfg.Addr, s.OutputPath(), filepath.Dir(s.deckPath), s.Handout)
	p.SetSlideShownHandler(func(msg contracts.SlideShownMessage) {
		s.slideShown(msg.Slide)
	})
	if err := p.Start(); err != nil {
		return "", fmt.Errorf("start preview: %w", err)
	}

	s.template = tmpl
	s.preview = p
	s.scheduler = livesync.NewScheduler(p,
		livesync.WithDelay(s.cfg.GetDebounce()),
		livesync.WithAfterFunc(s.afterFunc),
	)

	if s.cfg.Template != "" {
		w, err := preview.NewTemplateWatcher(s.cfg.Template, s.onTemplateChanged)
		if err != nil {
			log.Printf("[go-live-remark] template watch disabled: %v", err)
		} else {
			w.Start()
			s.watcher = w
		}
	}

	if err := s.publish(doc); err != nil {
		return "", err
	}
	return p.URL(), nil
}

// Stop ends the live session and discards its sync state.
func (s *Session) Stop() {
	s.mu.Lock()
	p, sched, w := s.preview, s.scheduler, s.watcher
	s.preview, s.scheduler, s.watcher = nil, nil, nil
	s.mu.Unlock()

	// Stopped outside the lock: their goroutines may be calling back into s.
	if sched != nil {
		sched.Stop()
	}
	if w != nil {
		if err := w.Stop(); err != nil {
			log.Printf("[go-live-remark] stop template watcher: %v", err)
		}
	}
	if p != nil {
		if err := p.Stop(); err != nil {
			log.Printf("[go-live-remark] stop preview: %v", err)
		}
	}
}

// Active reports whether a live session is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active()
}

func (s *Session) active() bool {
	return s.preview != nil && s.preview.SessionActive()
}

// URL returns the preview URL, or "" without a live session.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ""
	}
	return s.preview.URL()
}

// SetSlideShownHandler registers the callback run when the presenter changes
// slide in the browser.
func (s *Session) SetSlideShownHandler(fn func(slide int)) {
	s.slideShownMu.Lock()
	defer s.slideShownMu.Unlock()
	s.onSlideShown = fn
}

func (s *Session) slideShown(slide int) {
	s.slideShownMu.RLock()
	fn := s.onSlideShown
	s.slideShownMu.RUnlock()
	if fn != nil {
		fn(slide)
	}
}

// OnCursorMoved schedules a preview sync for the cursor.
func (s *Session) OnCursorMoved(doc deck.Document, cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arm(doc, cursor)
}

// arm must be called with s.mu held.
func (s *Session) arm(doc deck.Document, cursor int) {
	if !s.active() {
		return
	}
	s.scheduler.Arm(doc, cursor)
}

// OnSave materializes doc and reloads the preview.
func (s *Session) OnSave(doc deck.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active() {
		return ErrNoLiveSession
	}
	return s.publish(doc)
}

// publish must be called with s.mu held.
func (s *Session) publish(doc deck.Document) error {
	artifact, err := preview.Materialize(s.template, doc.String())
	if err != nil {
		return err
	}
	if _, err := preview.Publish(artifact, s.OutputPath()); err != nil {
		return err
	}
	s.lastSaved = doc
	s.preview.Reload()
	return nil
}

func (s *Session) onTemplateChanged(path string) error {
	tmpl, err := preview.LoadTemplate(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return nil
	}
	s.template = tmpl
	return s.publish(s.lastSaved)
}

// OnNextSlideCommand returns the cursor moved to the next slide.
func (s *Session) OnNextSlideCommand(doc deck.Document, cursor int) int {
	next := deck.NextSlide(doc, cursor)
	s.OnCursorMoved(doc, next)
	return next
}

// OnPrevSlideCommand returns the cursor moved to the previous slide.
func (s *Session) OnPrevSlideCommand(doc deck.Document, cursor int) int {
	prev := deck.PrevSlide(doc, cursor)
	s.OnCursorMoved(doc, prev)
	return prev
}

// OnInsertSeparatorCommand returns the edit opening a new slide, increment
// or note after the current slide.
func (s *Session) OnInsertSeparatorCommand(doc deck.Document, cursor int, kind deck.Kind) deck.Edit {
	edit := deck.InsertSeparator(doc, cursor, kind)
	s.OnCursorMoved(edit.Apply(doc), edit.Cursor)
	return edit
}

// OnKillSlideCommand returns the edit deleting the current slide.
func (s *Session) OnKillSlideCommand(doc deck.Document, cursor int) deck.Edit {
	edit := deck.KillSlide(doc, cursor)
	s.OnCursorMoved(edit.Apply(doc), edit.Cursor)
	return edit
}

// Handout renders the last published deck as a printable page.
func (s *Session) Handout() (string, error) {
	s.mu.Lock()
	doc := s.lastSaved
	s.mu.Unlock()
	return s.renderer.RenderHandout(doc)
}

// OutlineEntry is one visible slide of the deck.
type OutlineEntry struct {
	Slide int
	Row   int
	Title string
}

// Outline lists the visible slides of doc with their first heading.
func (s *Session) Outline(doc deck.Document) []OutlineEntry {
	var entries []OutlineEntry
	for _, slide := range deck.Slides(doc) {
		if slide.IsLayout() {
			continue
		}
		row, _ := doc.Position(slide.Start)
		title := s.renderer.Title(slide.Content)
		if title == "" {
			title = firstLine(slide.Content)
		}
		entries = append(entries, OutlineEntry{Slide: slide.Number, Row: row, Title: title})
	}
	return entries
}

func firstLine(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(line)
}
