// Package httpserver handles all message traffic between Neovim and the browser.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"go-live-remark/internal/contracts"

	"github.com/gorilla/websocket"
)

// HandoutFunc renders the handout page on demand.
type HandoutFunc func() (string, error)

// PreviewServer serves the published remark page and pushes navigate and
// reload signals to the browser over a WebSocket.
type PreviewServer struct {
	addr         string
	artifactPath string
	assetDir     string
	handout      HandoutFunc

	active   atomic.Bool
	server   *http.Server
	listener net.Listener

	handlerMu    sync.RWMutex
	onSlideShown func(contracts.SlideShownMessage)

	browserInbound chan []byte
	navigates      chan int
	reloads        chan struct{}
	register       chan *websocket.Conn
	unregister     chan *websocket.Conn
	stopLoop       chan struct{}
	loopDone       chan struct{}

	upgrader websocket.Upgrader
}

// NewPreviewServer creates a server bound to addr that serves the file at
// artifactPath. Other paths are served from assetDir when it is set, so
// images referenced relative to the deck keep working.
func NewPreviewServer(addr, artifactPath, assetDir string, handout HandoutFunc) *PreviewServer {
	return &PreviewServer{
		addr:         addr,
		artifactPath: artifactPath,
		assetDir:     assetDir,
		handout:      handout,

		browserInbound: make(chan []byte, 64),
		navigates:      make(chan int, 32),
		reloads:        make(chan struct{}, 8),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		stopLoop:       make(chan struct{}),
		loopDone:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start binds the listener and begins serving. A server is started at most
// once; create a new one for the next session.
func (m *PreviewServer) Start() error {
	if m.active.Load() {
		return nil
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleIndex)
	mux.HandleFunc("/ws", m.handleWS)
	mux.HandleFunc("/handout", m.handleHandout)

	m.listener = ln
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.active.Store(true)

	go m.runLoop()
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[preview] serve: %v", err)
		}
	}()
	return nil
}

// URL returns the browser URL for the preview server.
func (m *PreviewServer) URL() string {
	if m.listener != nil {
		return "http://" + m.listener.Addr().String()
	}
	return "http://" + m.addr
}

// SessionActive reports whether the server is running.
func (m *PreviewServer) SessionActive() bool {
	return m.active.Load()
}

// Navigate asks the connected browser to show slide. It never blocks.
func (m *PreviewServer) Navigate(slide int) {
	if !m.active.Load() {
		return
	}
	select {
	case m.navigates <- slide:
	case <-m.stopLoop:
	default:
		log.Printf("[preview] navigate queue full, dropping slide %d", slide)
	}
}

// Reload asks the connected browser to reload the page. It never blocks.
func (m *PreviewServer) Reload() {
	if !m.active.Load() {
		return
	}
	select {
	case m.reloads <- struct{}{}:
	case <-m.stopLoop:
	default:
		// A reload is already queued.
	}
}

// Stop gracefully shuts down the HTTP server and run loop.
func (m *PreviewServer) Stop() error {
	if !m.active.CompareAndSwap(true, false) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	close(m.stopLoop)
	err := m.server.Shutdown(ctx)
	<-m.loopDone
	return err
}

// SetSlideShownHandler registers the callback for browser slide changes.
func (m *PreviewServer) SetSlideShownHandler(fn func(contracts.SlideShownMessage)) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.onSlideShown = fn
}

func (m *PreviewServer) slideShownHandler() func(contracts.SlideShownMessage) {
	m.handlerMu.RLock()
	defer m.handlerMu.RUnlock()
	return m.onSlideShown
}

// handleIndex serves the published page at the root and deck assets elsewhere.
func (m *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		m.handleAsset(w, r)
		return
	}

	data, err := os.ReadFile(m.artifactPath)
	if err != nil {
		http.Error(w, "preview not published yet, save the deck", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// handleAsset serves files next to the deck.
func (m *PreviewServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	if m.assetDir == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if path.Base(r.URL.Path)[0] == '.' {
		http.NotFound(w, r)
		return
	}
	http.FileServer(http.Dir(m.assetDir)).ServeHTTP(w, r)
}

func (m *PreviewServer) handleHandout(w http.ResponseWriter, r *http.Request) {
	if m.handout == nil {
		http.NotFound(w, r)
		return
	}
	page, err := m.handout()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// handleWS upgrades the connection and forwards browser messages to the loop.
func (m *PreviewServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	select {
	case m.register <- conn:
	case <-m.stopLoop:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case m.unregister <- conn:
		case <-m.stopLoop:
		}
	}()

	// Block here until the connection closes / errors outs
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case m.browserInbound <- msg:
		case <-m.stopLoop:
			return
		}
	}
}

// runLoop serializes state updates and websocket writes on a single goroutine.
func (m *PreviewServer) runLoop() {
	defer close(m.loopDone)

	var conn *websocket.Conn

	lastNavigate := contracts.NavigateMessage{Type: contracts.MessageTypeNavigate}
	reload := contracts.ReloadMessage{Type: contracts.MessageTypeReload}

	for {
		select {
		case slide := <-m.navigates:
			lastNavigate.Slide = slide
			if conn == nil {
				continue
			}
			if !writeJSON(conn, lastNavigate) {
				conn = nil
			}

		case <-m.reloads:
			reload.Rev++
			if conn == nil {
				continue
			}
			if !writeJSON(conn, reload) {
				conn = nil
			}

		case c := <-m.register:
			if conn != nil {
				_ = conn.Close()
			}
			conn = c

			// A freshly loaded page starts on slide 1.
			if lastNavigate.Slide > 0 && !writeJSON(conn, lastNavigate) {
				conn = nil
			}

		case c := <-m.unregister:
			if conn == c {
				_ = conn.Close()
				conn = nil
			}

		case raw := <-m.browserInbound:
			var envelope contracts.IncomingMessage
			if err := json.Unmarshal(raw, &envelope); err != nil {
				continue
			}
			switch envelope.Type {
			case contracts.MessageTypeSlideShown:
				var msg contracts.SlideShownMessage
				if err := json.Unmarshal(raw, &msg); err != nil || msg.Slide < 1 {
					continue
				}
				// Replayed to the next page load, e.g. after a reload.
				lastNavigate.Slide = msg.Slide
				if fn := m.slideShownHandler(); fn != nil {
					fn(msg)
				}
			}

		case <-m.stopLoop:
			if conn != nil {
				_ = conn.Close()
				conn = nil
			}
			return
		}
	}
}

// writeJSON writes a JSON message and reports whether the connection is usable.
func writeJSON(conn *websocket.Conn, v any) bool {
	if err := conn.WriteJSON(v); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}
