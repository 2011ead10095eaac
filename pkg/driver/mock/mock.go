// Package mock provides an in-memory automation backend for tests and dry runs.
package mock

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// Element is one widget on the simulated screen.
type Element struct {
	ID    string
	Class string // android.widget.* or XCUIElementType*
	Text  string

	// Native attributes by name: content-desc, hint, resource-id, label, name,
	// value, placeholderValue, ...
	Attrs map[string]string

	// Flutter widget tree view of the same element.
	FlutterKey  string
	FlutterType string
	FlutterText string

	Clickable bool
	Disabled  bool // interactions fail with "element not interactable"
}

// Config configures mock driver behavior.
type Config struct {
	Platform string // android or ios; defaults to android
	Elements []Element

	// Contexts defaults to [NATIVE_APP FLUTTER]; InitialContext to FLUTTER.
	Contexts       []string
	InitialContext string

	// Queries answers native strategies other than "xpath //*", keyed by
	// QueryKey(strategy, value).
	Queries map[string][]string

	// UnsupportedProbes lists attribute names whose probes fail; "text" covers ProbeText.
	UnsupportedProbes map[string]bool

	// Injected failures.
	ScreenshotErr error
	ClickErr      error
	SetValueErr   error
	ContextsErr   error
	CloseErr      error
}

// Driver is a mock implementation of core.Session.
type Driver struct {
	Config Config

	mu      sync.Mutex
	context string
	values  map[string]string
	calls   []string
	closed  bool
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	if cfg.Platform == "" {
		cfg.Platform = "android"
	}
	if len(cfg.Contexts) == 0 {
		cfg.Contexts = []string{core.ContextNative, core.ContextFlutter}
	}
	if cfg.InitialContext == "" {
		cfg.InitialContext = core.ContextFlutter
	}
	return &Driver{
		Config:  cfg,
		context: cfg.InitialContext,
		values:  make(map[string]string),
	}
}

// QueryKey builds the Config.Queries key for a native query.
func QueryKey(strategy, value string) string {
	return strategy + "|" + value
}

func (d *Driver) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

// Calls returns the backend operations performed so far, in order.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Value returns the text typed into an element.
func (d *Driver) Value(elementID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[elementID]
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Platform implements core.Backend.
func (d *Driver) Platform() string {
	return d.Config.Platform
}

// Close implements core.Session.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")
	d.closed = true
	return d.Config.CloseErr
}

// Screenshot implements core.ScreenCapturer. It returns a 1x1 PNG.
func (d *Driver) Screenshot() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("screenshot")
	if d.Config.ScreenshotErr != nil {
		return nil, d.Config.ScreenshotErr
	}
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0x02, G: 0x56, B: 0x9b, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Contexts implements core.ContextSwitcher.
func (d *Driver) Contexts() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("contexts")
	if d.Config.ContextsErr != nil {
		return nil, d.Config.ContextsErr
	}
	return append([]string(nil), d.Config.Contexts...), nil
}

// CurrentContext implements core.ContextSwitcher.
func (d *Driver) CurrentContext() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Config.ContextsErr != nil {
		return "", d.Config.ContextsErr
	}
	return d.context, nil
}

// SwitchContext implements core.ContextSwitcher.
func (d *Driver) SwitchContext(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("switch %s", name)
	for _, c := range d.Config.Contexts {
		if c == name {
			d.context = name
			return nil
		}
	}
	return fmt.Errorf("no such context: %s", name)
}

// FindElements implements core.ElementQuerier. Flutter strategies answer only
// in the FLUTTER context and native strategies only outside it.
func (d *Driver) FindElements(strategy, value string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("find %s %s", strategy, value)

	if strings.HasPrefix(strategy, "-flutter ") {
		if d.context != core.ContextFlutter {
			return nil, fmt.Errorf("invalid selector: %s is not supported in %s", strategy, d.context)
		}
		var ids []string
		for _, e := range d.Config.Elements {
			if flutterMatches(e, strategy, value) {
				ids = append(ids, e.ID)
			}
		}
		return ids, nil
	}

	if d.context == core.ContextFlutter {
		return nil, fmt.Errorf("invalid selector: %s is not supported in %s", strategy, d.context)
	}
	if strategy == "xpath" && value == "//*" {
		ids := make([]string, 0, len(d.Config.Elements))
		for _, e := range d.Config.Elements {
			ids = append(ids, e.ID)
		}
		return ids, nil
	}
	return append([]string(nil), d.Config.Queries[QueryKey(strategy, value)]...), nil
}

func flutterMatches(e Element, strategy, value string) bool {
	switch strategy {
	case "-flutter key":
		return e.FlutterKey != "" && e.FlutterKey == value
	case "-flutter type":
		return e.FlutterType != "" && e.FlutterType == value
	case "-flutter text":
		return e.FlutterText != "" && e.FlutterText == value
	}
	return false
}

func (d *Driver) element(id string) (Element, bool) {
	for _, e := range d.Config.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// ProbeAttribute implements core.ElementQuerier. "class" and "type" read Element.Class.
func (d *Driver) ProbeAttribute(elementID, name string) core.AttrValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.element(elementID)
	if !ok || d.Config.UnsupportedProbes[name] {
		return core.Unsupported
	}
	if name == "class" || name == "type" {
		return core.AttrValue{Value: e.Class, Supported: true}
	}
	return core.AttrValue{Value: e.Attrs[name], Supported: true}
}

// ProbeText implements core.ElementQuerier.
func (d *Driver) ProbeText(elementID string) core.AttrValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.element(elementID)
	if !ok || d.Config.UnsupportedProbes["text"] {
		return core.Unsupported
	}
	if v, typed := d.values[elementID]; typed {
		return core.AttrValue{Value: v, Supported: true}
	}
	return core.AttrValue{Value: e.Text, Supported: true}
}

func (d *Driver) interact(action, elementID string, injected error) error {
	d.record("%s %s", action, elementID)
	if injected != nil {
		return injected
	}
	e, ok := d.element(elementID)
	if !ok {
		return fmt.Errorf("stale element reference: %s", elementID)
	}
	if e.Disabled {
		return fmt.Errorf("element not interactable: %s", elementID)
	}
	return nil
}

// Click implements core.Interactor.
func (d *Driver) Click(elementID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interact("click", elementID, d.Config.ClickErr)
}

// Clear implements core.Interactor.
func (d *Driver) Clear(elementID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.interact("clear", elementID, nil); err != nil {
		return err
	}
	delete(d.values, elementID)
	return nil
}

// SetValue implements core.Interactor.
func (d *Driver) SetValue(elementID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.interact("setValue", elementID, d.Config.SetValueErr); err != nil {
		return err
	}
	d.values[elementID] = text
	return nil
}

// Source implements core.Backend. It renders the elements in the page source
// dialect of the configured platform.
func (d *Driver) Source() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("source")

	var b strings.Builder
	b.WriteString(xml.Header)
	if d.Config.Platform == "ios" {
		b.WriteString(`<AppiumAUT><XCUIElementTypeApplication type="XCUIElementTypeApplication" enabled="true" visible="true">`)
	} else {
		b.WriteString(`<hierarchy rotation="0">`)
	}
	for _, e := range d.Config.Elements {
		d.writeElement(&b, e)
	}
	if d.Config.Platform == "ios" {
		b.WriteString(`</XCUIElementTypeApplication></AppiumAUT>`)
	} else {
		b.WriteString(`</hierarchy>`)
	}
	return b.String(), nil
}

func (d *Driver) writeElement(b *strings.Builder, e Element) {
	class := e.Class
	if class == "" {
		class = "android.view.View"
	}
	b.WriteString("<" + class)
	attr := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(" " + name + `="`)
		_ = xml.EscapeText(b, []byte(value))
		b.WriteString(`"`)
	}
	if d.Config.Platform == "ios" {
		attr("type", class)
	} else {
		attr("class", class)
		attr("text", e.Text)
	}
	for _, name := range []string{"content-desc", "hint", "resource-id", "name", "label", "value", "placeholderValue"} {
		attr(name, e.Attrs[name])
	}
	attr("enabled", fmt.Sprintf("%t", !e.Disabled))
	if d.Config.Platform == "ios" {
		attr("visible", "true")
	} else {
		attr("clickable", fmt.Sprintf("%t", e.Clickable))
	}
	b.WriteString(" />")
}

var _ core.Session = (*Driver)(nil)
