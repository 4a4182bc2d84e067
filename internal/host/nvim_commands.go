package host

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"go-live-remark/internal/app"
	"go-live-remark/internal/config"
	"go-live-remark/internal/deck"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
)

// Pattern selects the buffers the autocmds fire for.
const Pattern = "*.remark"

const logPrefix = "[go-live-remark]"

// Commands is a state container for Neovim command handlers.
// It keeps one session per deck buffer; at most one of them is live.
type Commands struct {
	mu       sync.Mutex
	sessions map[nvim.Buffer]*app.Session
	loadCfg  func(dir string) (*config.Config, error)
}

func NewCommands() *Commands {
	return &Commands{
		sessions: make(map[nvim.Buffer]*app.Session),
		loadCfg:  config.Find,
	}
}

// Register registers Neovim command and autocmd handlers.
func Register(p *plugin.Plugin) error {
	c := NewCommands()

	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})

	commands := []struct {
		name string
		fn   func(*nvim.Nvim) error
	}{
		{"RemarkStart", c.Start},
		{"RemarkStop", c.Stop},
		{"RemarkNextSlide", c.NextSlide},
		{"RemarkPrevSlide", c.PrevSlide},
		{"RemarkNewSlide", c.insert(deck.KindSlide)},
		{"RemarkNewIncrementalSlide", c.insert(deck.KindIncremental)},
		{"RemarkNewNote", c.insert(deck.KindNote)},
		{"RemarkKillSlide", c.KillSlide},
		{"RemarkOutline", c.Outline},
	}
	for _, cmd := range commands {
		p.HandleCommand(&plugin.CommandOptions{Name: cmd.name}, cmd.fn)
	}

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "CursorMoved,CursorMovedI",
		Pattern: Pattern,
	}, c.CursorMoved)

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "BufWritePost",
		Pattern: Pattern,
	}, c.Saved)

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "BufUnload",
		Pattern: Pattern,
	}, c.Unloaded)

	return nil
}

// snapshot is the state of the current buffer and window.
type snapshot struct {
	buf    nvim.Buffer
	win    nvim.Window
	doc    deck.Document
	cursor int
}

func currentSnapshot(v *nvim.Nvim) (snapshot, error) {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return snapshot{}, err
	}
	lines, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return snapshot{}, err
	}
	win, err := v.CurrentWindow()
	if err != nil {
		return snapshot{}, err
	}
	pos, err := v.WindowCursor(win)
	if err != nil {
		return snapshot{}, err
	}

	doc := deck.FromLines(lines)
	return snapshot{buf: buf, win: win, doc: doc, cursor: doc.Offset(pos[0], pos[1])}, nil
}

// session returns the session of buf, creating an idle one on first use.
func (c *Commands) session(v *nvim.Nvim, buf nvim.Buffer) (*app.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[buf]; ok {
		return s, nil
	}

	path, err := v.BufferName(buf)
	if err != nil {
		return nil, err
	}
	cfg, err := c.loadCfg(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	s, err := app.NewSession(cfg, path)
	if err != nil {
		return nil, err
	}
	c.sessions[buf] = s
	return s, nil
}

// liveSession returns the session of buf only if it is live.
func (c *Commands) liveSession(buf nvim.Buffer) *app.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[buf]
	if !ok || !s.Active() {
		return nil
	}
	return s
}

func (c *Commands) Start(v *nvim.Nvim) error {
	snap, err := currentSnapshot(v)
	if err != nil {
		return err
	}
	s, err := c.session(v, snap.buf)
	if err != nil {
		return err
	}

	// The preview address is shared, so only one deck can be live.
	c.stopOthers(snap.buf)

	s.SetSlideShownHandler(func(slide int) {
		c.goToSlide(v, snap.buf, slide)
	})
	url, err := s.Start(snap.doc)
	if err != nil {
		return err
	}
	s.OnCursorMoved(snap.doc, snap.cursor)

	log.Printf("%s live session for %s at %s", logPrefix, s.DeckPath(), url)
	return echo(v, "preview: "+url+"  handout: "+url+"/handout")
}

func (c *Commands) stopOthers(keep nvim.Buffer) {
	c.mu.Lock()
	var others []*app.Session
	for buf, s := range c.sessions {
		if buf != keep {
			others = append(others, s)
		}
	}
	c.mu.Unlock()

	for _, s := range others {
		s.Stop()
	}
}

func (c *Commands) Stop(v *nvim.Nvim) error {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	s := c.liveSession(buf)
	if s == nil {
		return echo(v, "no live session for this buffer")
	}
	s.Stop()
	return echo(v, "live session stopped")
}

func (c *Commands) NextSlide(v *nvim.Nvim) error {
	return c.move(v, (*app.Session).OnNextSlideCommand)
}

func (c *Commands) PrevSlide(v *nvim.Nvim) error {
	return c.move(v, (*app.Session).OnPrevSlideCommand)
}

func (c *Commands) move(v *nvim.Nvim, fn func(*app.Session, deck.Document, int) int) error {
	snap, err := currentSnapshot(v)
	if err != nil {
		return err
	}
	s, err := c.session(v, snap.buf)
	if err != nil {
		return err
	}
	return setCursor(v, snap.win, snap.doc, fn(s, snap.doc, snap.cursor))
}

func (c *Commands) insert(kind deck.Kind) func(*nvim.Nvim) error {
	return func(v *nvim.Nvim) error {
		return c.edit(v, func(s *app.Session, doc deck.Document, cursor int) deck.Edit {
			return s.OnInsertSeparatorCommand(doc, cursor, kind)
		})
	}
}

func (c *Commands) KillSlide(v *nvim.Nvim) error {
	return c.edit(v, (*app.Session).OnKillSlideCommand)
}

func (c *Commands) edit(v *nvim.Nvim, fn func(*app.Session, deck.Document, int) deck.Edit) error {
	snap, err := currentSnapshot(v)
	if err != nil {
		return err
	}
	s, err := c.session(v, snap.buf)
	if err != nil {
		return err
	}

	e := fn(s, snap.doc, snap.cursor)
	startRow, startCol, endRow, endCol, replacement := bufferText(snap.doc, e)
	if err := v.SetBufferText(snap.buf, startRow, startCol, endRow, endCol, replacement); err != nil {
		return err
	}
	return setCursor(v, snap.win, e.Apply(snap.doc), e.Cursor)
}

// bufferText converts an edit to nvim_buf_set_text arguments: zero-based rows
// and byte columns, and the replacement split into lines.
func bufferText(doc deck.Document, e deck.Edit) (startRow, startCol, endRow, endCol int, replacement [][]byte) {
	startRow, startCol = doc.Position(e.Start)
	endRow, endCol = doc.Position(e.End)
	for _, line := range strings.Split(e.Text, "\n") {
		replacement = append(replacement, []byte(line))
	}
	return startRow - 1, startCol, endRow - 1, endCol, replacement
}

func setCursor(v *nvim.Nvim, win nvim.Window, doc deck.Document, offset int) error {
	row, col := doc.Position(offset)
	return v.SetWindowCursor(win, [2]int{row, col})
}

func (c *Commands) Outline(v *nvim.Nvim) error {
	snap, err := currentSnapshot(v)
	if err != nil {
		return err
	}
	s, err := c.session(v, snap.buf)
	if err != nil {
		return err
	}

	entries := s.Outline(snap.doc)
	items := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]interface{}{
			"bufnr": int(snap.buf),
			"lnum":  e.Row,
			"text":  fmt.Sprintf("slide %d: %s", e.Slide, e.Title),
		})
	}
	if err := v.Call("setqflist", nil, items); err != nil {
		return err
	}
	return v.Command("copen")
}

func (c *Commands) CursorMoved(v *nvim.Nvim) error {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	s := c.liveSession(buf)
	if s == nil {
		return nil
	}

	snap, err := currentSnapshot(v)
	if err != nil {
		return err
	}
	s.OnCursorMoved(snap.doc, snap.cursor)
	return nil
}

func (c *Commands) Saved(v *nvim.Nvim) error {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	s, err := c.session(v, buf)
	if err != nil {
		return err
	}

	lines, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return err
	}
	err = s.OnSave(deck.FromLines(lines))
	switch {
	case errors.Is(err, app.ErrNoLiveSession):
		return echo(v, "saved; run :RemarkStart for a live preview")
	case err != nil:
		return echoErr(v, err)
	}
	return nil
}

// Unloaded stops the sessions whose buffer is gone.
func (c *Commands) Unloaded(v *nvim.Nvim) error {
	c.mu.Lock()
	bufs := make([]nvim.Buffer, 0, len(c.sessions))
	for buf := range c.sessions {
		bufs = append(bufs, buf)
	}
	c.mu.Unlock()

	for _, buf := range bufs {
		loaded, err := v.IsBufferLoaded(buf)
		if err != nil || loaded {
			continue
		}

		c.mu.Lock()
		s := c.sessions[buf]
		delete(c.sessions, buf)
		c.mu.Unlock()

		if s != nil {
			s.Stop()
		}
	}
	return nil
}

// goToSlide moves the cursor to slide when the presenter changed it in the
// browser.
func (c *Commands) goToSlide(v *nvim.Nvim, buf nvim.Buffer, slide int) {
	snap, err := currentSnapshot(v)
	if err != nil || snap.buf != buf {
		return
	}
	if deck.SlideAt(snap.doc, snap.cursor) == slide {
		return
	}

	offset, ok := deck.SlideStart(snap.doc, slide)
	if !ok {
		return
	}
	if err := setCursor(v, snap.win, snap.doc, offset); err != nil {
		log.Printf("%s go to slide %d: %v", logPrefix, slide, err)
		return
	}
	_ = v.Command("normal! zz")
}

func echo(v *nvim.Nvim, msg string) error {
	return v.WriteOut(logPrefix + " " + msg + "\n")
}

func echoErr(v *nvim.Nvim, err error) error {
	return v.WritelnErr(logPrefix + " " + err.Error())
}
