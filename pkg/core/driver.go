package core

// ScreenCapturer captures the current screen as PNG bytes.
type ScreenCapturer interface {
	Screenshot() ([]byte, error)
}

// ContextSwitcher lists and switches automation contexts (NATIVE_APP, FLUTTER, WEBVIEW_*).
type ContextSwitcher interface {
	Contexts() ([]string, error)
	CurrentContext() (string, error)
	SwitchContext(name string) error
}

// ElementQuerier resolves selectors to element handles and reads element state.
// Probe methods never fail: an attribute the backend cannot read is reported as
// unsupported rather than as an error.
type ElementQuerier interface {
	FindElements(strategy, value string) ([]string, error)
	ProbeAttribute(elementID, name string) AttrValue
	ProbeText(elementID string) AttrValue
}

// Interactor performs actions on element handles.
type Interactor interface {
	Click(elementID string) error
	Clear(elementID string) error
	SetValue(elementID, text string) error
}

// Backend is the full set of remote automation operations used by driver scripts.
// Implementations: appium.Driver, mock.Driver.
type Backend interface {
	ScreenCapturer
	ContextSwitcher
	ElementQuerier
	Interactor

	// Source returns the UI hierarchy of the current context as XML.
	Source() (string, error)

	// Platform returns "android" or "ios".
	Platform() string
}

// Session is a Backend bound to a remote session that must be released.
type Session interface {
	Backend
	Close() error
}

// AttrValue is the outcome of probing one element attribute.
type AttrValue struct {
	Value     string
	Supported bool // false when the backend could not read the attribute
}

// Unsupported is the AttrValue returned when a probe fails.
var Unsupported = AttrValue{}

// Present returns true when the attribute was readable and non-empty.
func (a AttrValue) Present() bool {
	return a.Supported && a.Value != ""
}

// Well-known automation contexts.
const (
	ContextNative  = "NATIVE_APP"
	ContextFlutter = "FLUTTER"
)

// Bounds is an element's on-screen rectangle in device pixels.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
