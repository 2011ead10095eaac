package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	Title       string    // Report title (default: "Flutter Automation Test Report")
	GeneratedAt time.Time // Shown in the header (default: now)
	EmbedAssets bool      // Embed screenshots as base64 (makes file larger but portable)
	Environment Environment
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title       string
	GeneratedAt string
	Target      string // platform, device and app from the environment
	Summary     Summary
	TotalSize   string
	Runs        []RunHTMLData
	Gallery     []ImageHTMLData
}

// RunHTMLData contains run data formatted for HTML.
type RunHTMLData struct {
	Name        string
	Description string
	StatusClass string
	DurationStr string
	StartStr    string
	Parameters  []core.Parameter
	Steps       []StepHTMLData
	Images      []ImageHTMLData
	Error       string
}

// StepHTMLData contains step data formatted for HTML.
type StepHTMLData struct {
	Name        string
	StatusClass string
	Details     string
}

// ImageHTMLData is one screenshot link.
type ImageHTMLData struct {
	Name  string
	Src   template.URL
	Title string
	Size  string
}

// GenerateHTML writes a self-contained HTML report for runs to path.
// Screenshots are linked relative to the report, or embedded when
// cfg.EmbedAssets is set. All free text is escaped by html/template.
func GenerateHTML(path string, runs []core.TestRun, screenshots []core.ScreenshotRecord, cfg HTMLConfig) error {
	if cfg.Title == "" {
		cfg.Title = "Flutter Automation Test Report"
	}
	if cfg.GeneratedAt.IsZero() {
		cfg.GeneratedAt = time.Now()
	}

	data := buildHTMLData(filepath.Dir(path), runs, screenshots, cfg)

	html, err := renderHTML(data)
	if err != nil {
		return writeError("render html", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return writeError("create report dir", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return writeError("write html", err)
	}
	return nil
}

func buildHTMLData(reportDir string, runs []core.TestRun, screenshots []core.ScreenshotRecord, cfg HTMLConfig) HTMLData {
	sizes := make(map[string]int64, len(screenshots))
	for _, s := range screenshots {
		sizes[s.Path] = s.Size
	}

	runsData := make([]RunHTMLData, len(runs))
	for i, r := range runs {
		steps := make([]StepHTMLData, len(r.Steps))
		for j, s := range r.Steps {
			steps[j] = StepHTMLData{
				Name:        s.Name,
				StatusClass: string(s.Status),
				Details:     s.Details,
			}
		}

		images := make([]ImageHTMLData, len(r.Attachments))
		for j, a := range r.Attachments {
			images[j] = ImageHTMLData{
				Name:  a.Name,
				Src:   imageSource(reportDir, a.Source, cfg.EmbedAssets),
				Title: a.Name,
				Size:  humanize.Bytes(uint64(sizes[a.Source])),
			}
		}

		runsData[i] = RunHTMLData{
			Name:        r.Name,
			Description: r.Description,
			StatusClass: string(r.Status),
			DurationStr: formatDuration(r.Duration),
			StartStr:    r.StartTime.Format("2006-01-02 15:04:05"),
			Parameters:  r.Parameters,
			Steps:       steps,
			Images:      images,
			Error:       r.ErrorMessage,
		}
	}

	gallery := make([]ImageHTMLData, len(screenshots))
	for i, s := range screenshots {
		gallery[i] = ImageHTMLData{
			Name:  s.Name,
			Src:   imageSource(reportDir, s.Path, cfg.EmbedAssets),
			Title: s.Name + " - " + s.Timestamp.UTC().Format(time.RFC3339),
			Size:  humanize.Bytes(uint64(s.Size)),
		}
	}

	summary := BuildSummary(runs, screenshots)
	return HTMLData{
		Title:       cfg.Title,
		GeneratedAt: cfg.GeneratedAt.Format("2006-01-02 15:04:05"),
		Target:      describeTarget(cfg.Environment),
		Summary:     summary,
		TotalSize:   humanize.Bytes(uint64(summary.ScreenshotBytes)),
		Runs:        runsData,
		Gallery:     gallery,
	}
}

// describeTarget joins the Platform, Device and App properties that are set.
func describeTarget(env Environment) string {
	var parts []string
	for _, key := range []string{"Platform", "Device", "App"} {
		if v, ok := env.Get(key); ok && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " · ")
}

// imageSource returns the URL the report uses for a screenshot: a data URI
// when embedding, otherwise the path relative to the report directory.
func imageSource(reportDir, path string, embed bool) template.URL {
	if embed {
		if uri := loadAsBase64(path); uri != "" {
			return template.URL(uri)
		}
	}
	ref := path
	if rel, err := filepath.Rel(reportDir, path); err == nil {
		ref = rel
	}
	u := url.URL{Path: filepath.ToSlash(ref)}
	return template.URL(u.String())
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", ms)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "data:" + core.ContentTypePNG + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --text-primary: #111827;
            --text-muted: rgb(107, 114, 128);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --passed-bg: rgba(34, 197, 94, 0.1);
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.08);
            --running: #06b6d4;
        }

        * { box-sizing: border-box; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-secondary);
            color: var(--text-primary);
            margin: 0;
            padding: 24px;
            line-height: 1.5;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: var(--bg-primary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 24px;
        }

        .header { text-align: center; border-bottom: 2px solid var(--passed); padding-bottom: 16px; margin-bottom: 24px; }
        .header p { color: var(--text-muted); }

        .summary { display: flex; justify-content: space-around; gap: 16px; margin-bottom: 24px; }
        .summary-item { flex: 1; text-align: center; padding: 16px; border-radius: 8px; background: var(--bg-secondary); }
        .summary-item .value { font-size: 24px; font-weight: 600; }

        .passed { color: var(--passed); }
        .failed { color: var(--failed); }
        .running { color: var(--running); }

        .test-result { margin-bottom: 24px; border: 1px solid var(--border-color); border-radius: 8px; padding: 20px; }
        .test-header { display: flex; justify-content: space-between; align-items: center; }
        .test-header .status { font-weight: 600; text-transform: uppercase; }

        .parameters { background: var(--bg-secondary); padding: 10px; border-radius: 4px; margin-bottom: 16px; }
        .parameters span + span::before { content: ", "; }

        .steps { margin-left: 20px; }
        .step { margin-bottom: 8px; padding: 8px 8px 8px 15px; border-left: 3px solid var(--border-color); }
        .step.passed { border-left-color: var(--passed); background: var(--passed-bg); color: inherit; }
        .step.failed { border-left-color: var(--failed); background: var(--failed-bg); color: inherit; }
        .step small { color: var(--text-muted); }

        .error { color: var(--failed); margin-top: 16px; }

        .screenshots { margin-top: 16px; }
        .screenshot { display: inline-block; margin: 5px; text-align: center; font-size: 12px; }
        .screenshot img { width: 200px; height: auto; border: 1px solid var(--border-color); border-radius: 4px; }
        .screenshot img:hover { opacity: 0.8; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
            <p>Generated on {{.GeneratedAt}}</p>
            {{if .Target}}<p class="target">{{.Target}}</p>{{end}}
        </div>

        <div class="summary">
            <div class="summary-item" id="total"><h3>Total Tests</h3><div class="value">{{.Summary.Total}}</div></div>
            <div class="summary-item" id="passed"><h3>Passed</h3><div class="value passed">{{.Summary.Passed}}</div></div>
            <div class="summary-item" id="failed"><h3>Failed</h3><div class="value failed">{{.Summary.Failed}}</div></div>
            <div class="summary-item" id="screenshots"><h3>Screenshots</h3><div class="value">{{.Summary.Screenshots}}</div><small>{{.TotalSize}}</small></div>
        </div>

        {{range .Runs}}
        <div class="test-result">
            <div class="test-header">
                <h2>{{.Name}}</h2>
                <span class="status {{.StatusClass}}">{{.StatusClass}}</span>
            </div>

            <p><strong>Description:</strong> {{.Description}}</p>
            <p><strong>Duration:</strong> <span class="duration">{{.DurationStr}}</span></p>
            <p><strong>Start Time:</strong> {{.StartStr}}</p>

            {{if .Parameters}}
            <div class="parameters">
                <strong>Parameters:</strong>
                {{range .Parameters}}<span class="parameter">{{.Name}}: {{.Value}}</span>{{end}}
            </div>
            {{end}}

            <div class="steps">
                <h3>Test Steps:</h3>
                {{range .Steps}}
                <div class="step {{.StatusClass}}">
                    <strong>{{.Name}}</strong> - {{.StatusClass}}
                    {{if .Details}}<br><small>{{.Details}}</small>{{end}}
                </div>
                {{end}}
            </div>

            {{if .Images}}
            <div class="screenshots run-screenshots">
                {{range .Images}}
                <div class="screenshot">
                    <a href="{{.Src}}" target="_blank"><img src="{{.Src}}" alt="{{.Name}}" title="{{.Title}}"></a>
                    <div>{{.Name}}</div>
                </div>
                {{end}}
            </div>
            {{end}}

            {{if .Error}}<div class="error"><strong>Error:</strong> {{.Error}}</div>{{end}}
        </div>
        {{end}}

        <div class="screenshots gallery">
            <h2>All Screenshots</h2>
            {{range .Gallery}}
            <div class="screenshot">
                <a href="{{.Src}}" target="_blank"><img src="{{.Src}}" alt="{{.Name}}" title="{{.Title}}"></a>
                <div>{{.Name}}</div>
                <small>{{.Size}}</small>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
