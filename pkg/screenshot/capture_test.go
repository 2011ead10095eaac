package screenshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/recorder"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type fakeScreen struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeScreen) Screenshot() ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCaptureWithoutActiveRun(t *testing.T) {
	dir := t.TempDir()
	rec := recorder.New(zerolog.Nop())
	c := NewCapturer(dir, &fakeScreen{data: pngHeader}, rec, zerolog.Nop())

	shot, err := c.Capture("before_click")
	require.NoError(t, err)
	require.NotNil(t, shot)

	assert.Len(t, c.Records(), 1)
	assert.Equal(t, "before_click", shot.Name)
	assert.Equal(t, int64(len(pngHeader)), shot.Size)
	assert.True(t, strings.HasPrefix(shot.Filename, "before_click_"))
	assert.True(t, strings.HasSuffix(shot.Filename, ".png"))

	data, err := os.ReadFile(shot.Path)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	// No run was active, so nothing got attached anywhere.
	_, active := rec.Active()
	assert.False(t, active)
	assert.Empty(t, rec.Completed())
}

func TestCaptureAttachesToActiveRun(t *testing.T) {
	rec := recorder.New(zerolog.Nop())
	c := NewCapturer(t.TempDir(), &fakeScreen{data: pngHeader}, rec, zerolog.Nop())

	_, err := rec.Start("Login", "")
	require.NoError(t, err)

	shot, err := c.Capture("login screen")
	require.NoError(t, err)
	rec.Finish(core.StatusPassed, "")

	run := rec.Completed()[0]
	require.Len(t, run.Attachments, 1)
	assert.Equal(t, shot.Path, run.Attachments[0].Source)
	assert.Equal(t, "login screen", run.Attachments[0].Name)
	assert.True(t, strings.HasPrefix(shot.Filename, "login_screen_"))
}

func TestCaptureSameMillisecondIsDisambiguated(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	c := NewCapturer(t.TempDir(), &fakeScreen{data: pngHeader}, nil, zerolog.Nop(), WithClock(fixedClock(ts)))

	first, err := c.Capture("tap")
	require.NoError(t, err)
	second, err := c.Capture("tap")
	require.NoError(t, err)
	third, err := c.Capture("tap")
	require.NoError(t, err)

	assert.Equal(t, "tap_2024-03-04T05-06-07-008Z.png", first.Filename)
	assert.Equal(t, "tap_2024-03-04T05-06-07-008Z_2.png", second.Filename)
	assert.Equal(t, "tap_2024-03-04T05-06-07-008Z_3.png", third.Filename)

	for _, r := range []*core.ScreenshotRecord{first, second, third} {
		_, err := os.Stat(r.Path)
		assert.NoError(t, err)
	}
}

func TestCaptureConcurrent(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	screen := &fakeScreen{data: pngHeader}
	c := NewCapturer(t.TempDir(), nil, recorder.New(zerolog.Nop()), zerolog.Nop(), WithClock(fixedClock(ts)))
	c.SetSource(screen)

	const workers, perWorker = 4, 10
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := c.Capture("final_cleanup")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	records := c.Records()
	require.Len(t, records, workers*perWorker)
	names := make(map[string]bool, len(records))
	for _, r := range records {
		names[r.Filename] = true
	}
	assert.Len(t, names, workers*perWorker, "filenames stay unique")
	assert.Equal(t, workers*perWorker, screen.calls)
}

func TestCaptureBackendFailure(t *testing.T) {
	rec := recorder.New(zerolog.Nop())
	_, err := rec.Start("Login", "")
	require.NoError(t, err)

	c := NewCapturer(t.TempDir(), &fakeScreen{err: errors.New("session gone")}, rec, zerolog.Nop())
	shot, err := c.Capture("after_fill")

	assert.Nil(t, shot)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCaptureFailed))
	assert.Empty(t, c.Records())

	active, _ := rec.Active()
	assert.Empty(t, active.Attachments)
}

func TestCaptureWriteFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	c := NewCapturer(missing, &fakeScreen{data: pngHeader}, nil, zerolog.Nop())

	assert.Nil(t, c.TryCapture("x"))
	assert.Empty(t, c.Records())
}

func TestCaptureWithoutSource(t *testing.T) {
	c := NewCapturer(t.TempDir(), nil, nil, zerolog.Nop())
	_, err := c.Capture("x")
	assert.Error(t, err)

	screen := &fakeScreen{data: pngHeader}
	c.SetSource(screen)
	_, err = c.Capture("x")
	assert.NoError(t, err)
	assert.Equal(t, 1, screen.calls)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "screenshots")
	c := NewCapturer(dir, nil, nil, zerolog.Nop())
	require.NoError(t, c.EnsureDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, c.Dir())
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"before_click_Submit", "before_click_Submit"},
		{"Login Screen", "Login_Screen"},
		{"  spaced   out  ", "spaced_out"},
		{"../etc/passwd", "..etcpasswd"},
		{"a\\b:c", "abc"},
		{"", "screenshot"},
		{"///", "screenshot"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeLabel(tt.in))
		})
	}
}
