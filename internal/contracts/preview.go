package contracts

const (
	// MessageTypeNavigate asks the browser to show a slide.
	MessageTypeNavigate = "navigate"
	// MessageTypeReload asks the browser to reload the published page.
	MessageTypeReload = "reload"
	// MessageTypeSlideShown reports the slide the browser is showing.
	MessageTypeSlideShown = "slide_shown"
)

// IncomingMessage is the minimal envelope used to route browser messages.
type IncomingMessage struct {
	Type string `json:"type"`
}

// NavigateMessage carries the 1-based slide the editor cursor is on.
type NavigateMessage struct {
	Type  string `json:"type"`
	Slide int    `json:"slide"`
}

// ReloadMessage tells the browser a new artifact was published.
type ReloadMessage struct {
	Type string `json:"type"`
	Rev  uint64 `json:"rev"`
}

// SlideShownMessage is sent by the browser when the presenter changes slide.
type SlideShownMessage struct {
	Type  string `json:"type"`
	Slide int    `json:"slide"`
}
