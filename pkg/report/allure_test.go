package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

var baseTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// writeShot creates a fake screenshot file and returns its record.
func writeShot(t *testing.T, dir, name string, offset time.Duration) core.ScreenshotRecord {
	t.Helper()
	filename := name + "_" + baseTime.Add(offset).Format("2006-01-02T15-04-05") + "-000Z.png"
	path := filepath.Join(dir, filename)
	data := []byte("png:" + name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write screenshot: %v", err)
	}
	return core.ScreenshotRecord{
		Name:      name,
		Filename:  filename,
		Path:      path,
		Timestamp: baseTime.Add(offset),
		Size:      int64(len(data)),
	}
}

func finishedRun(id, name string, status core.Status, steps []core.Step, duration time.Duration) core.TestRun {
	end := baseTime.Add(duration)
	return core.TestRun{
		ID:          id,
		Name:        name,
		Description: "Login with " + name,
		Status:      status,
		StartTime:   baseTime,
		EndTime:     &end,
		Duration:    duration.Milliseconds(),
		Steps:       steps,
		Parameters:  []core.Parameter{{Name: "Username", Value: "validuser"}, {Name: "Password", Value: "************"}},
		Attachments: []core.Attachment{},
	}
}

func sampleRuns(t *testing.T, shotDir string) ([]core.TestRun, []core.ScreenshotRecord) {
	t.Helper()
	connect := writeShot(t, shotDir, "initial_connection", time.Second)
	end := writeShot(t, shotDir, "test_end_passed", 5*time.Second)
	notFound := writeShot(t, shotDir, "not_found_click_submit_button", 7*time.Second)

	passed := finishedRun("run-1", "Valid Login", core.StatusPassed, []core.Step{
		{Name: "Connect to App", Status: core.StatusPassed, StartTime: baseTime.Add(time.Second)},
		{Name: "Fill username", Status: core.StatusPassed, StartTime: baseTime.Add(3 * time.Second), Details: `Filled with "validuser" (9 chars) via flutter key="username_field"`},
	}, 5*time.Second)
	passed.Attachments = []core.Attachment{connect.Attachment(), end.Attachment()}

	failed := finishedRun("run-2", "Invalid Login", core.StatusFailed, []core.Step{
		{Name: "Click Submit Button", Status: core.StatusFailed, StartTime: baseTime.Add(7 * time.Second), Details: "Element not found: Submit Button"},
	}, 8*time.Second)
	failed.ErrorMessage = "Could not click submit button"
	failed.Attachments = []core.Attachment{notFound.Attachment()}

	return []core.TestRun{passed, failed}, []core.ScreenshotRecord{connect, end, notFound}
}

func TestBuildAllureResult_Passed(t *testing.T) {
	runs, _ := sampleRuns(t, t.TempDir())
	result := BuildAllureResult(runs[0])

	assert.Equal(t, "run-1", result.UUID)
	assert.Equal(t, "Valid Login", result.Name)
	assert.Equal(t, SuiteName+".Valid Login", result.FullName)
	assert.Equal(t, "Login with Valid Login", result.Description)
	assert.Equal(t, "passed", result.Status)
	assert.Equal(t, "finished", result.Stage)
	assert.Equal(t, baseTime.UnixMilli(), result.Start)
	assert.Equal(t, baseTime.Add(5*time.Second).UnixMilli(), result.Stop)
	assert.Nil(t, result.StatusDetails)
	assert.Contains(t, result.Labels, AllureLabel{Name: "suite", Value: SuiteName})

	require.Len(t, result.Steps, 2)
	assert.Equal(t, baseTime.Add(3*time.Second).UnixMilli(), result.Steps[0].Stop, "stop is the next step's start")
	assert.Equal(t, result.Stop, result.Steps[1].Stop, "last step stops with the run")
	assert.Empty(t, result.Steps[0].Parameters)
	assert.Equal(t, []AllureParameter{{Name: "details", Value: runs[0].Steps[1].Details}}, result.Steps[1].Parameters)

	require.Len(t, result.Attachments, 2)
	assert.Equal(t, "initial_connection", result.Attachments[0].Name)
	assert.Equal(t, filepath.Base(runs[0].Attachments[0].Source), result.Attachments[0].Source)
	assert.Equal(t, core.ContentTypePNG, result.Attachments[0].Type)

	assert.Equal(t, []AllureParameter{{Name: "Username", Value: "validuser"}, {Name: "Password", Value: "************"}}, result.Parameters)
}

func TestBuildAllureResult_Failed(t *testing.T) {
	runs, _ := sampleRuns(t, t.TempDir())
	result := BuildAllureResult(runs[1])

	assert.Equal(t, "failed", result.Status)
	require.NotNil(t, result.StatusDetails)
	assert.Equal(t, "Could not click submit button", result.StatusDetails.Message)
	assert.Equal(t, "failed", result.Steps[0].Status)
}

func TestBuildAllureResult_HistoryIDStable(t *testing.T) {
	runs, _ := sampleRuns(t, t.TempDir())
	other := runs[0]
	other.ID = "another-id"

	a, b := BuildAllureResult(runs[0]), BuildAllureResult(other)
	assert.Equal(t, a.HistoryID, b.HistoryID, "same test name shares history")
	assert.NotEqual(t, a.HistoryID, BuildAllureResult(runs[1]).HistoryID)
	assert.Len(t, a.HistoryID, 8)
}

func TestBuildAllureResult_DoesNotMutateRun(t *testing.T) {
	runs, _ := sampleRuns(t, t.TempDir())
	before := runs[0].Clone()
	_ = BuildAllureResult(runs[0])
	assert.Equal(t, before, runs[0])
}

func TestBuildAllureResult_Unfinished(t *testing.T) {
	run := core.TestRun{ID: "r", Name: "n", Status: core.StatusRunning, StartTime: baseTime, Duration: 0}
	result := BuildAllureResult(run)
	assert.Equal(t, "running", result.Stage)
	assert.Equal(t, "unknown", result.Status)
	assert.Equal(t, result.Start, result.Stop)
	assert.NotNil(t, result.Steps)
	assert.NotNil(t, result.Attachments)
}

func TestApproximateStepStop(t *testing.T) {
	steps := []core.Step{
		{StartTime: baseTime},
		{StartTime: baseTime.Add(2 * time.Second)},
		{StartTime: baseTime.Add(time.Second)}, // clock went backwards
	}
	runStop := baseTime.Add(10 * time.Second).UnixMilli()

	assert.Equal(t, baseTime.Add(2*time.Second).UnixMilli(), approximateStepStop(steps, 0, runStop))
	assert.Equal(t, baseTime.Add(2*time.Second).UnixMilli(), approximateStepStop(steps, 1, runStop), "never before its own start")
	assert.Equal(t, runStop, approximateStepStop(steps, 2, runStop))
}

func TestWriteAllure(t *testing.T) {
	shotDir := t.TempDir()
	reportDir := filepath.Join(t.TempDir(), "allure-results")
	runs, _ := sampleRuns(t, shotDir)
	env := DefaultEnvironment("Android", "Emulator", "Flutter Test App", baseTime)

	written, err := WriteAllure(reportDir, runs, env)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(reportDir, "run-1-result.json"),
		filepath.Join(reportDir, "run-2-result.json"),
		filepath.Join(reportDir, "environment.properties"),
		filepath.Join(reportDir, "categories.json"),
	}, written)

	data, err := os.ReadFile(written[1])
	require.NoError(t, err)
	var result AllureResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "run-2", result.UUID)
	assert.Equal(t, "Could not click submit button", result.StatusDetails.Message)

	// attachments resolve next to the result
	for _, a := range result.Attachments {
		_, err := os.Stat(filepath.Join(reportDir, a.Source))
		assert.NoError(t, err, a.Source)
	}

	props, err := os.ReadFile(written[2])
	require.NoError(t, err)
	assert.Contains(t, string(props), "Platform=Android\n")
	assert.Contains(t, string(props), `Test\ Framework=flutter-login-runner`)
	assert.Contains(t, string(props), "Date=2026-03-14T09:30:00Z\n")

	var categories []AllureCategory
	data, err = os.ReadFile(written[3])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &categories))
	assert.NotEmpty(t, categories)
}

func TestWriteAllure_SameDirectory(t *testing.T) {
	dir := t.TempDir()
	runs, _ := sampleRuns(t, dir)

	_, err := WriteAllure(dir, runs, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(runs[0].Attachments[0].Source)
	require.NoError(t, err)
	assert.Equal(t, "png:initial_connection", string(data), "copying onto itself must not truncate")
}

func TestWriteAllure_MissingAttachmentIsSkipped(t *testing.T) {
	shotDir := t.TempDir()
	runs, _ := sampleRuns(t, shotDir)
	require.NoError(t, os.Remove(runs[1].Attachments[0].Source))

	_, err := WriteAllure(t.TempDir(), runs, nil)
	assert.NoError(t, err)
}

func TestWriteAllure_WriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := WriteAllure(filepath.Join(blocker, "results"), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrReportWrite))
	assert.Equal(t, core.ErrCategoryReportWrite, core.CategoryOf(err))
}

func TestWriteAllure_NoRuns(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteAllure(dir, nil, Environment{{Key: "Platform", Value: "iOS"}})
	require.NoError(t, err)
	assert.Len(t, written, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), "-result.json"))
	}
}

func TestMapAllureStatus(t *testing.T) {
	tests := []struct {
		in   core.Status
		want string
	}{
		{core.StatusPassed, "passed"},
		{core.StatusFailed, "failed"},
		{core.StatusRunning, "unknown"},
	}
	for _, tt := range tests {
		if got := mapAllureStatus(tt.in); got != tt.want {
			t.Errorf("mapAllureStatus(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
