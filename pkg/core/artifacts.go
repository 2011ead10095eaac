// Package core provides the test-run model types for flutter-login-runner.
package core

import (
	"time"
)

// Attachment references an artifact captured while a run was active.
type Attachment struct {
	Name        string `json:"name"`   // Semantic label of the capture
	ContentType string `json:"type"`   // MIME type: image/png
	Source      string `json:"source"` // File path of the artifact
}

// Content types of artifacts and backend payloads.
const (
	ContentTypePNG  = "image/png"
	ContentTypeJSON = "application/json"
)

// ScreenshotRecord describes one persisted screenshot. Immutable once created.
type ScreenshotRecord struct {
	Name      string    `json:"name"`      // Semantic label, e.g. before_click_Submit
	Filename  string    `json:"filename"`  // Unique file name: <label>_<timestamp>.png
	Path      string    `json:"path"`      // Path on disk
	Timestamp time.Time `json:"timestamp"` // Capture time
	Size      int64     `json:"size"`      // Bytes written
}

// Attachment converts the record into a run attachment.
func (r ScreenshotRecord) Attachment() Attachment {
	return Attachment{
		Name:        r.Name,
		ContentType: ContentTypePNG,
		Source:      r.Path,
	}
}
