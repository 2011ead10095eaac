package appium

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// Driver implements core.Session using an Appium server.
type Driver struct {
	client   *Client
	platform string // detected from capabilities
	appID    string
}

// standardCapabilities are W3C capability names that are sent without a vendor prefix.
var standardCapabilities = map[string]bool{
	"platformName":              true,
	"browserName":               true,
	"browserVersion":            true,
	"acceptInsecureCerts":       true,
	"pageLoadStrategy":          true,
	"proxy":                     true,
	"setWindowRect":             true,
	"timeouts":                  true,
	"strictFileInteractability": true,
	"unhandledPromptBehavior":   true,
}

// W3CCapabilities returns a copy of caps with every non-standard name
// prefixed by "appium:". Names that already carry a vendor prefix are kept.
func W3CCapabilities(caps map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(caps))
	for name, value := range caps {
		if standardCapabilities[name] || strings.Contains(name, ":") {
			out[name] = value
			continue
		}
		out["appium:"+name] = value
	}
	return out
}

// ConnectOption configures the client used by Connect.
type ConnectOption func(*Client)

// WithTimeout sets the HTTP timeout of every WebDriver call. Zero keeps the
// client default.
func WithTimeout(d time.Duration) ConnectOption {
	return func(c *Client) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// Connect creates a session on the Appium server at serverURL.
// Transport failures are reported as core.ErrServerUnreachable, rejected
// session requests as core.ErrSessionFailed.
func Connect(serverURL string, capabilities map[string]interface{}, opts ...ConnectOption) (*Driver, error) {
	client := NewClient(serverURL)
	for _, opt := range opts {
		opt(client)
	}
	caps := W3CCapabilities(capabilities)

	if err := client.Connect(caps); err != nil {
		details := map[string]interface{}{"server": serverURL}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, core.ErrServerUnreachable.WithCause(err).WithDetails(details)
		}
		return nil, core.ErrSessionFailed.WithCause(err).WithDetails(details)
	}

	d := &Driver{
		client:   client,
		platform: client.Platform(),
	}

	// Extract app ID from capabilities
	if appID, ok := caps["appium:appPackage"].(string); ok {
		d.appID = appID
	} else if appID, ok := caps["appium:bundleId"].(string); ok {
		d.appID = appID
	}

	return d, nil
}

// Close deletes the remote session.
func (d *Driver) Close() error {
	return d.client.Disconnect()
}

// SessionID returns the remote session identifier.
func (d *Driver) SessionID() string {
	return d.client.SessionID()
}

// AppID returns the application package or bundle identifier under test.
func (d *Driver) AppID() string {
	return d.appID
}

// Platform implements core.Backend.
func (d *Driver) Platform() string {
	return d.platform
}

// Screenshot implements core.ScreenCapturer.
func (d *Driver) Screenshot() ([]byte, error) {
	return d.client.Screenshot()
}

// Source implements core.Backend.
func (d *Driver) Source() (string, error) {
	return d.client.Source()
}

// Contexts implements core.ContextSwitcher.
func (d *Driver) Contexts() ([]string, error) {
	return d.client.GetContexts()
}

// CurrentContext implements core.ContextSwitcher.
func (d *Driver) CurrentContext() (string, error) {
	return d.client.GetContext()
}

// SwitchContext implements core.ContextSwitcher.
func (d *Driver) SwitchContext(name string) error {
	return d.client.SetContext(name)
}

// FindElements implements core.ElementQuerier.
// "no such element" responses are an empty result, not an error.
func (d *Driver) FindElements(strategy, value string) ([]string, error) {
	ids, err := d.client.FindElements(strategy, value)
	if IsNoSuchElement(err) {
		return nil, nil
	}
	return ids, err
}

// ProbeAttribute implements core.ElementQuerier.
func (d *Driver) ProbeAttribute(elementID, name string) core.AttrValue {
	value, err := d.client.GetElementAttribute(elementID, name)
	if err != nil {
		return core.Unsupported
	}
	return core.AttrValue{Value: value, Supported: true}
}

// ProbeText implements core.ElementQuerier.
func (d *Driver) ProbeText(elementID string) core.AttrValue {
	text, err := d.client.GetElementText(elementID)
	if err != nil {
		return core.Unsupported
	}
	return core.AttrValue{Value: text, Supported: true}
}

// Click implements core.Interactor.
func (d *Driver) Click(elementID string) error {
	return d.client.ClickElement(elementID)
}

// Clear implements core.Interactor.
func (d *Driver) Clear(elementID string) error {
	return d.client.ClearElement(elementID)
}

// SetValue implements core.Interactor.
func (d *Driver) SetValue(elementID, text string) error {
	return d.client.SendElementValue(elementID, text)
}

var _ core.Session = (*Driver)(nil)
