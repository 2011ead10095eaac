// Package appium talks to an Appium server over the W3C WebDriver protocol
// and adapts it to core.Session.
package appium

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// Element reference keys: W3C, and the JSONWP key older drivers still send.
const (
	w3cElementKey    = "element-6066-11e4-a52e-4f735466cecf"
	legacyElementKey = "ELEMENT"
)

// WebDriverError is an error reported by the server.
type WebDriverError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"` // e.g. "no such element"
	Message string `json:"message"`
}

func (e *WebDriverError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return e.Code + ": " + e.Message
}

// IsNoSuchElement reports whether err is a "no such element" response.
func IsNoSuchElement(err error) bool {
	var wdErr *WebDriverError
	return errors.As(err, &wdErr) && wdErr.Code == "no such element"
}

// Client sends WebDriver commands for one session. Disconnect may run
// concurrently with other commands.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	sessionID string
	platform  string // ios, android
}

// NewClient creates a client for the server at serverURL.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		// session creation and screenshots on a cold emulator are slow
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

// SetTimeout overrides the per-request HTTP timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// Connect creates a session. The platform is taken from the negotiated
// capabilities, falling back to the requested ones.
func (c *Client) Connect(capabilities map[string]interface{}) error {
	var created struct {
		SessionID    string                 `json:"sessionId"`
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{"alwaysMatch": capabilities},
	}
	if err := c.call(http.MethodPost, "/session", body, &created); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if created.SessionID == "" {
		return errors.New("no session ID in response")
	}

	platform := platformOf(created.Capabilities)
	if platform == "" {
		platform = platformOf(capabilities)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = created.SessionID
	c.platform = platform
	return nil
}

func platformOf(caps map[string]interface{}) string {
	name, _ := caps["platformName"].(string)
	return strings.ToLower(name)
}

// Disconnect deletes the session. It is a no-op without one.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	id := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	return c.call(http.MethodDelete, "/session/"+id, nil, nil)
}

// SessionID returns the current session ID, empty when disconnected.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Platform returns "ios" or "android".
func (c *Client) Platform() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.platform
}

// elementRef is a WebDriver element reference object.
type elementRef map[string]string

func (r elementRef) id() string {
	if id := r[w3cElementKey]; id != "" {
		return id
	}
	return r[legacyElementKey]
}

// FindElements returns the IDs of all elements matching the locator.
func (c *Client) FindElements(strategy, value string) ([]string, error) {
	var refs []elementRef
	body := map[string]string{"using": strategy, "value": value}
	if err := c.call(http.MethodPost, c.sessionPath()+"/elements", body, &refs); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id := ref.id(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ClickElement taps an element.
func (c *Client) ClickElement(elementID string) error {
	return c.call(http.MethodPost, c.elementPath(elementID)+"/click", nil, nil)
}

// ClearElement clears an element's text.
func (c *Client) ClearElement(elementID string) error {
	return c.call(http.MethodPost, c.elementPath(elementID)+"/clear", nil, nil)
}

// SendElementValue types text into an element.
func (c *Client) SendElementValue(elementID, text string) error {
	return c.call(http.MethodPost, c.elementPath(elementID)+"/value", map[string]string{"text": text}, nil)
}

// GetElementText returns an element's text.
func (c *Client) GetElementText(elementID string) (string, error) {
	var text string
	err := c.call(http.MethodGet, c.elementPath(elementID)+"/text", nil, &text)
	return text, err
}

// GetElementAttribute returns an attribute as a string. An absent attribute
// (JSON null) is "".
func (c *Client) GetElementAttribute(elementID, name string) (string, error) {
	var value interface{}
	if err := c.call(http.MethodGet, c.elementPath(elementID)+"/attribute/"+name, nil, &value); err != nil {
		return "", err
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

// GetContexts returns the available automation contexts.
func (c *Client) GetContexts() ([]string, error) {
	var contexts []string
	err := c.call(http.MethodGet, c.sessionPath()+"/contexts", nil, &contexts)
	return contexts, err
}

// GetContext returns the current automation context.
func (c *Client) GetContext() (string, error) {
	var name string
	err := c.call(http.MethodGet, c.sessionPath()+"/context", nil, &name)
	return name, err
}

// SetContext switches the automation context.
func (c *Client) SetContext(name string) error {
	return c.call(http.MethodPost, c.sessionPath()+"/context", map[string]string{"name": name}, nil)
}

// Screenshot returns the screen as PNG bytes.
func (c *Client) Screenshot() ([]byte, error) {
	var encoded string
	if err := c.call(http.MethodGet, c.sessionPath()+"/screenshot", nil, &encoded); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Source returns the page source XML of the current context.
func (c *Client) Source() (string, error) {
	var source string
	err := c.call(http.MethodGet, c.sessionPath()+"/source", nil, &source)
	return source, err
}

func (c *Client) sessionPath() string {
	return "/session/" + c.SessionID()
}

func (c *Client) elementPath(elementID string) string {
	return c.sessionPath() + "/element/" + elementID
}

// call sends one command and decodes the "value" member of the response
// into out, which may be nil. HTTP errors and error objects in the value
// are returned as *WebDriverError.
func (c *Client) call(method, path string, body, out interface{}) error {
	var payload io.Reader
	switch {
	case body != nil:
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	case method == http.MethodPost:
		payload = strings.NewReader("{}")
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", core.ContentTypeJSON)
	req.Header.Set("Accept", core.ContentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode >= http.StatusBadRequest {
		wdErr := &WebDriverError{Status: resp.StatusCode}
		if decodeErr == nil {
			_ = json.Unmarshal(envelope.Value, wdErr)
		}
		return wdErr
	}
	if decodeErr != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, decodeErr)
	}
	if wdErr := errorValue(envelope.Value); wdErr != nil {
		wdErr.Status = resp.StatusCode
		return wdErr
	}

	if out == nil || len(envelope.Value) == 0 || string(envelope.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Value, out); err != nil {
		return fmt.Errorf("%s %s: unexpected value: %w", method, path, err)
	}
	return nil
}

// errorValue returns the error object some servers send with status 200.
func errorValue(raw json.RawMessage) *WebDriverError {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var wdErr WebDriverError
	if json.Unmarshal(raw, &wdErr) != nil || wdErr.Code == "" {
		return nil
	}
	return &wdErr
}
