package httpserver

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-live-remark/internal/contracts"
)

func startServer(t *testing.T, handout HandoutFunc) (*PreviewServer, string) {
	t.Helper()
	dir := t.TempDir()
	artifact := filepath.Join(dir, "index.html")

	s := NewPreviewServer("127.0.0.1:0", artifact, dir, handout)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s, artifact
}

func dial(t *testing.T, s *PreviewServer) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.URL(), "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServesPublishedArtifact(t *testing.T) {
	s, artifact := startServer(t, nil)

	status, _ := get(t, s.URL()+"/")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	require.NoError(t, os.WriteFile(artifact, []byte("<textarea>deck</textarea>"), 0o644))
	status, body := get(t, s.URL()+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<textarea>deck</textarea>", body)
}

func TestServesDeckAssets(t *testing.T) {
	s, artifact := startServer(t, nil)
	dir := filepath.Dir(artifact)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".secret"), []byte("x"), 0o644))

	status, body := get(t, s.URL()+"/logo.svg")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<svg/>", body)

	status, _ = get(t, s.URL()+"/.secret")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandout(t *testing.T) {
	s, _ := startServer(t, func() (string, error) { return "<h1>handout</h1>", nil })

	status, body := get(t, s.URL()+"/handout")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<h1>handout</h1>", body)
}

func TestNavigateAndReload(t *testing.T) {
	s, _ := startServer(t, nil)
	conn := dial(t, s)

	s.Navigate(3)
	var nav contracts.NavigateMessage
	require.NoError(t, conn.ReadJSON(&nav))
	assert.Equal(t, contracts.NavigateMessage{Type: contracts.MessageTypeNavigate, Slide: 3}, nav)

	s.Reload()
	var reload contracts.ReloadMessage
	require.NoError(t, conn.ReadJSON(&reload))
	assert.Equal(t, contracts.MessageTypeReload, reload.Type)
	assert.Equal(t, uint64(1), reload.Rev)
}

func TestReplaysLastNavigateOnConnect(t *testing.T) {
	s, _ := startServer(t, nil)

	first := dial(t, s)
	s.Navigate(4)
	var nav contracts.NavigateMessage
	require.NoError(t, first.ReadJSON(&nav))
	require.Equal(t, 4, nav.Slide)

	// A reloaded page opens a new connection.
	second := dial(t, s)
	require.NoError(t, second.ReadJSON(&nav))
	assert.Equal(t, 4, nav.Slide)
}

func TestSlideShownHandler(t *testing.T) {
	s, _ := startServer(t, nil)

	got := make(chan contracts.SlideShownMessage, 1)
	s.SetSlideShownHandler(func(msg contracts.SlideShownMessage) { got <- msg })

	conn := dial(t, s)
	require.NoError(t, conn.WriteJSON(contracts.SlideShownMessage{Type: contracts.MessageTypeSlideShown, Slide: 5}))

	select {
	case msg := <-got:
		assert.Equal(t, 5, msg.Slide)
	case <-time.After(5 * time.Second):
		t.Fatal("slide_shown was not delivered")
	}
}

func TestStop(t *testing.T) {
	s, _ := startServer(t, nil)
	assert.True(t, s.SessionActive())

	require.NoError(t, s.Stop())
	assert.False(t, s.SessionActive())

	// Signals after stop are dropped without blocking.
	s.Navigate(1)
	s.Reload()
	require.NoError(t, s.Stop())
}
