package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/logger"
)

// SuiteName labels every result so Allure groups them together.
const SuiteName = "Flutter Login Tests"

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string               `json:"uuid"`
	HistoryID     string               `json:"historyId"`
	FullName      string               `json:"fullName"`
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	Status        string               `json:"status"`
	Stage         string               `json:"stage"`
	Start         int64                `json:"start"`
	Stop          int64                `json:"stop"`
	Labels        []AllureLabel        `json:"labels"`
	StatusDetails *AllureStatusDetails `json:"statusDetails,omitempty"`
	Steps         []AllureStep         `json:"steps"`
	Attachments   []AllureAttachment   `json:"attachments"`
	Parameters    []AllureParameter    `json:"parameters"`
}

// AllureStep represents a step within a test result.
type AllureStep struct {
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	Stage      string            `json:"stage"`
	Start      int64             `json:"start"`
	Stop       int64             `json:"stop"`
	Parameters []AllureParameter `json:"parameters,omitempty"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureParameter is a name/value pair shown next to a result or step.
type AllureParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds the failure message.
type AllureStatusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// BuildAllureResult converts a finished run into its Allure result. It does
// not touch the filesystem; attachment sources are reduced to base names
// because WriteAllure copies the files next to the result.
func BuildAllureResult(run core.TestRun) AllureResult {
	start := run.StartTime.UnixMilli()
	stop := start + run.Duration
	if run.EndTime != nil {
		stop = run.EndTime.UnixMilli()
	}

	stage := "finished"
	if !run.IsFinished() {
		stage = "running"
	}

	var details *AllureStatusDetails
	if run.ErrorMessage != "" {
		details = &AllureStatusDetails{Message: run.ErrorMessage}
	}

	steps := make([]AllureStep, 0, len(run.Steps))
	for i, s := range run.Steps {
		step := AllureStep{
			Name:   s.Name,
			Status: mapAllureStatus(s.Status),
			Stage:  "finished",
			Start:  s.StartTime.UnixMilli(),
			Stop:   approximateStepStop(run.Steps, i, stop),
		}
		if s.Details != "" {
			step.Parameters = []AllureParameter{{Name: "details", Value: s.Details}}
		}
		steps = append(steps, step)
	}

	attachments := make([]AllureAttachment, 0, len(run.Attachments))
	for _, a := range run.Attachments {
		attachments = append(attachments, AllureAttachment{
			Name:   a.Name,
			Source: filepath.Base(a.Source),
			Type:   a.ContentType,
		})
	}

	params := make([]AllureParameter, 0, len(run.Parameters))
	for _, p := range run.Parameters {
		params = append(params, AllureParameter{Name: p.Name, Value: p.Value})
	}

	return AllureResult{
		UUID:        run.ID,
		HistoryID:   fnv32aHash(SuiteName + ":" + run.Name),
		FullName:    SuiteName + "." + run.Name,
		Name:        run.Name,
		Description: run.Description,
		Status:      mapAllureStatus(run.Status),
		Stage:       stage,
		Start:       start,
		Stop:        stop,
		Labels: []AllureLabel{
			{Name: "suite", Value: SuiteName},
			{Name: "feature", Value: "Login"},
			{Name: "framework", Value: "appium"},
			{Name: "language", Value: "go"},
			{Name: "severity", Value: "normal"},
		},
		StatusDetails: details,
		Steps:         steps,
		Attachments:   attachments,
		Parameters:    params,
	}
}

// approximateStepStop returns the stop time of step i in milliseconds.
//
// Steps only carry a start time, so a step is taken to last until the next
// step starts; the last step lasts until the run ends. The result is never
// earlier than the step's own start.
func approximateStepStop(steps []core.Step, i int, runStop int64) int64 {
	start := steps[i].StartTime.UnixMilli()
	stop := runStop
	if i+1 < len(steps) {
		stop = steps[i+1].StartTime.UnixMilli()
	}
	if stop < start {
		return start
	}
	return stop
}

// WriteAllure writes one <runID>-result.json per run plus
// environment.properties and categories.json into dir, and copies every
// attached screenshot next to the results. It returns the written paths.
// Any write failure is a core.ErrReportWrite.
func WriteAllure(dir string, runs []core.TestRun, env Environment) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, writeError("create report dir", err)
	}

	var written []string
	for _, run := range runs {
		data, err := json.MarshalIndent(BuildAllureResult(run), "", "  ")
		if err != nil {
			return written, writeError("marshal allure result for "+run.ID, err)
		}

		path := filepath.Join(dir, run.ID+"-result.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, writeError("write allure result "+run.ID, err)
		}
		written = append(written, path)

		if err := copyAttachments(dir, run.Attachments); err != nil {
			return written, err
		}
	}

	path, err := writeAllureEnvironment(dir, env)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	path, err = writeAllureCategories(dir)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	return written, nil
}

func writeError(msg string, err error) error {
	return core.ErrReportWrite.WithMessage(msg).WithCause(err)
}

// copyAttachments copies attachment files into dir under their base name.
// A missing source is logged and skipped; the result still references it.
func copyAttachments(dir string, attachments []core.Attachment) error {
	for _, a := range attachments {
		dst := filepath.Join(dir, filepath.Base(a.Source))
		if sameFile(a.Source, dst) {
			continue
		}
		err := copyFile(a.Source, dst)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("attachment %s missing, not copied", a.Source)
			continue
		}
		if err != nil {
			return writeError("copy attachment "+a.Name, err)
		}
	}
	return nil
}

func sameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// copyFile copies a single file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// mapAllureStatus maps a run or step status to an Allure status string.
func mapAllureStatus(s core.Status) string {
	switch s {
	case core.StatusPassed:
		return "passed"
	case core.StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// allureCategories sorts failures by the messages the runner produces.
var allureCategories = []AllureCategory{
	{Name: "Connection Error", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*connection failed.*|.*unreachable.*|.*session.*"},
	{Name: "Element Not Found", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*could not (fill|click).*|.*element not found.*"},
	{Name: "Interaction Error", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*(click|fill|clear) .* failed.*|.*not interactable.*|.*stale element.*"},
	{Name: "Timeout", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*timeout.*|.*timed out.*"},
}

// writeAllureCategories writes categories.json for failure categorization.
func writeAllureCategories(dir string) (string, error) {
	data, err := json.MarshalIndent(allureCategories, "", "  ")
	if err != nil {
		return "", writeError("marshal categories", err)
	}

	path := filepath.Join(dir, "categories.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", writeError("write categories.json", err)
	}
	return path, nil
}

// writeAllureEnvironment writes environment.properties.
func writeAllureEnvironment(dir string, env Environment) (string, error) {
	path := filepath.Join(dir, "environment.properties")
	if err := os.WriteFile(path, []byte(env.Properties()), 0o644); err != nil {
		return "", writeError("write environment.properties", err)
	}
	return path, nil
}
