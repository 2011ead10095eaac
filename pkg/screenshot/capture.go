// Package screenshot captures screenshots from the automation backend, stores
// them on disk and attaches them to the active test run.
package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// timestampLayout is a filesystem-safe RFC 3339 timestamp; milliseconds are
// appended by formatTimestamp.
const timestampLayout = "2006-01-02T15-04-05"

// Attacher receives screenshots captured while a run is active.
// Implemented by recorder.Recorder.
type Attacher interface {
	AttachScreenshot(rec core.ScreenshotRecord) bool
}

// Capturer takes screenshots and keeps the global list of records.
type Capturer struct {
	dir      string
	attacher Attacher
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex // guards src, records and used
	src     core.ScreenCapturer
	records []core.ScreenshotRecord
	used    map[string]int // base name -> captures sharing it
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// NewCapturer creates a Capturer writing PNG files to dir.
// attacher may be nil, in which case screenshots are only recorded globally.
func NewCapturer(dir string, src core.ScreenCapturer, attacher Attacher, log zerolog.Logger, opts ...Option) *Capturer {
	c := &Capturer{
		dir:      dir,
		src:      src,
		attacher: attacher,
		log:      log,
		now:      time.Now,
		used:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSource replaces the screen source, e.g. once a session is established.
func (c *Capturer) SetSource(src core.ScreenCapturer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.src = src
}

// Dir returns the screenshot directory.
func (c *Capturer) Dir() string {
	return c.dir
}

// EnsureDir creates the screenshot directory.
func (c *Capturer) EnsureDir() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	return nil
}

// Capture takes a screenshot labelled label.
// On failure it logs, returns a nil record and an error in the capture category;
// callers are expected to continue. Captures are serialised.
func (c *Capturer) Capture(label string) (*core.ScreenshotRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.src == nil {
		return nil, c.fail(label, fmt.Errorf("no screen source"))
	}

	data, err := c.src.Screenshot()
	if err != nil {
		return nil, c.fail(label, err)
	}

	ts := c.now().UTC()
	name := sanitizeLabel(label)
	filename := c.uniqueFilename(name, ts)
	path := filepath.Join(c.dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, c.fail(label, err)
	}

	rec := core.ScreenshotRecord{
		Name:      label,
		Filename:  filename,
		Path:      path,
		Timestamp: ts,
		Size:      int64(len(data)),
	}
	c.records = append(c.records, rec)

	attached := false
	if c.attacher != nil {
		attached = c.attacher.AttachScreenshot(rec)
	}

	c.log.Info().
		Str("file", filename).
		Str("size", humanize.Bytes(uint64(rec.Size))).
		Bool("attached", attached).
		Msg("Screenshot captured")

	return &rec, nil
}

// TryCapture captures and discards any error (already logged by Capture).
func (c *Capturer) TryCapture(label string) *core.ScreenshotRecord {
	rec, _ := c.Capture(label)
	return rec
}

// Records returns a copy of every screenshot captured so far.
func (c *Capturer) Records() []core.ScreenshotRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.ScreenshotRecord(nil), c.records...)
}

func (c *Capturer) fail(label string, err error) error {
	c.log.Error().Err(err).Str("label", label).Msg("Error capturing screenshot")
	return core.ErrCaptureFailed.WithCause(err).WithDetails(map[string]interface{}{"label": label})
}

// uniqueFilename returns <name>_<timestamp>.png, suffixed with _2, _3 ... when the
// same label is captured more than once within one millisecond.
func (c *Capturer) uniqueFilename(name string, ts time.Time) string {
	base := name + "_" + formatTimestamp(ts)
	c.used[base]++
	if n := c.used[base]; n > 1 {
		return fmt.Sprintf("%s_%d.png", base, n)
	}
	return base + ".png"
}

// formatTimestamp renders ts as 2006-01-02T15-04-05-000Z.
func formatTimestamp(ts time.Time) string {
	return fmt.Sprintf("%s-%03dZ", ts.Format(timestampLayout), ts.Nanosecond()/int(time.Millisecond))
}

// sanitizeLabel turns a label into a file name fragment: whitespace runs become
// underscores and path separators are dropped.
func sanitizeLabel(label string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
			continue
		case r == '/' || r == '\\' || r == ':' || r == 0:
			continue
		default:
			b.WriteRune(r)
		}
		lastUnderscore = false
	}
	if b.Len() == 0 {
		return "screenshot"
	}
	return b.String()
}
