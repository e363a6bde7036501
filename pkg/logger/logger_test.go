package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skinscraper/pkg/config"
)

func newBufferLogger(t *testing.T) (Logger, *bytes.Buffer) {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	return NewWithWriter(&buf, zerolog.DebugLevel), &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestAppFieldAndMessages(t *testing.T) {
	l, buf := newBufferLogger(t)

	l.Info("listing page fetched")
	out := buf.String()
	assert.Contains(t, out, "listing page fetched")
	assert.Contains(t, out, `"app":"skinscraper"`)
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(t)

	child := l.WithField("page", 2).WithFields(map[string]interface{}{"item": 5})
	child.Info("child event")
	l.Info("parent event")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"page":2`)
	assert.Contains(t, lines[0], `"item":5`)
	assert.NotContains(t, lines[1], `"page"`)
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger(t)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("listing unreachable")).Error("crawl aborted")
	assert.Contains(t, buf.String(), "listing unreachable")
}

func TestFieldTypes(t *testing.T) {
	l, buf := newBufferLogger(t)

	l.InfoWithFields("typed", map[string]interface{}{
		"count":    3,
		"ratio":    0.5,
		"ok":       true,
		"elapsed":  2 * time.Second,
		"tags":     []string{"dragon", "cat"},
		"at":       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"indices":  []int{0, 1},
		"fallback": struct{ Name string }{Name: "x"},
	})

	out := buf.String()
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"tags":["dragon","cat"]`)
	assert.Contains(t, out, `"ok":true`)
}

func TestLogItem(t *testing.T) {
	tl := NewTestLogger()

	LogItem(tl, 1, 2, "https://skins.example/skin/2/", "saved", nil)
	LogItem(tl, 1, 3, "https://skins.example/skin/3/", "duplicate", nil)
	LogItem(tl, 2, 1, "https://skins.example/skin/9/", "skipped", errors.New("marker missing"))

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.True(t, tl.HasMessage("Duplicate image skipped"))

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, 2, warns[0].Fields["page"])
	assert.EqualError(t, warns[0].Error, "marker missing")
}

func TestTestLoggerChildrenShareSink(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("component", "crawler").Info("started")
	tl.Warn("plain")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "crawler", msgs[0].Fields["component"])
	assert.Nil(t, msgs[1].Fields)

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "debug"}))
	assert.NotNil(t, GetLogger())

	Info("global info")
	WithField("key", "value").Debug("with field")
	WithError(errors.New("boom")).Warn("with error")
}
