package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf, JSON: true, Activity: NewActivityLog(10)})
	require.NotNil(t, logger)

	t.Run("Levels", func(t *testing.T) {
		for _, fn := range []func(string, ...any){logger.Debug, logger.Info, logger.Warn, logger.Error} {
			buf.Reset()
			fn("level msg")
			assert.Contains(t, buf.String(), "level msg")
		}
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		logger.SetLevel(LevelError)
		assert.Equal(t, LevelError, logger.Level())

		buf.Reset()
		logger.Info("should not appear")
		assert.Zero(t, buf.Len(), "logged info while level was error")

		logger.SetLevel(LevelDebug)
	})

	t.Run("Scoping", func(t *testing.T) {
		buf.Reset()
		logger.WithComponent("client").WithCategory("qos").Info("msg")
		assert.Contains(t, buf.String(), `"component":"client"`)
		assert.Contains(t, buf.String(), `"category":"qos"`)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	require.NotNil(t, Default())

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Activity = NewActivityLog(10)
	prev := Default()
	SetDefault(New(cfg))
	defer SetDefault(prev)

	Default().Debug("hidden")
	WithComponent("comp").Info("comp msg")

	assert.Contains(t, buf.String(), "comp: comp msg")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	act := NewActivityLog(10)
	l := New(Config{Level: LevelDebug, Output: &buf, Activity: act})
	l.WithComponent("Console").WithCategory("qos").Info("rules submitted", "count", 2, "note", "two words")

	line := buf.String()
	assert.Contains(t, line, "INFO  console[qos]: rules submitted")
	assert.Contains(t, line, "count=2")
	assert.Contains(t, line, `note="two words"`)
	assert.NotContains(t, line, "category=")
	assert.True(t, strings.HasSuffix(line, "\n"))

	got := act.Recent(1)
	require.Len(t, got, 1)
	assert.Equal(t, "console", got[0].Component)
	assert.Equal(t, "qos", got[0].Category)
	assert.Equal(t, "info", got[0].Level)
	assert.Contains(t, got[0].String(), "console[qos]: rules submitted")
}

func TestFilteredRecordsSkipActivity(t *testing.T) {
	act := NewActivityLog(10)
	l := New(Config{Level: LevelWarn, Output: &bytes.Buffer{}, Activity: act})
	l.Info("below threshold")
	l.Warn("kept")
	require.Equal(t, 1, act.Len())
	assert.Equal(t, "kept", act.Recent(5)[0].Message)
}

func TestActivityLog(t *testing.T) {
	t.Run("Overflow", func(t *testing.T) {
		a := NewActivityLog(5)
		for i := 0; i < 7; i++ {
			a.Add(Entry{Message: string(rune('a' + i))})
		}
		assert.Equal(t, 5, a.Len())
		all := a.Recent(10)
		require.Len(t, all, 5)
		assert.Equal(t, "c", all[0].Message)
		assert.Equal(t, "g", all[4].Message)
	})

	t.Run("Recent", func(t *testing.T) {
		a := NewActivityLog(5)
		a.Add(Entry{Message: "1"})
		a.Add(Entry{Message: "2"})
		a.Add(Entry{Message: "3"})

		last2 := a.Recent(2)
		require.Len(t, last2, 2)
		assert.Equal(t, "2", last2[0].Message)
		assert.Equal(t, "3", last2[1].Message)
		assert.Empty(t, a.Recent(0))
	})

	t.Run("ForCategory", func(t *testing.T) {
		a := NewActivityLog(10)
		a.Add(Entry{Category: "dns", Message: "1"})
		a.Add(Entry{Category: "qos", Message: "2"})
		a.Add(Entry{Message: "3"})
		a.Add(Entry{Category: "dns", Message: "4"})

		got := a.ForCategory("dns", 10)
		require.Len(t, got, 3)
		assert.Equal(t, "1", got[0].Message)
		assert.Equal(t, "3", got[1].Message)
		assert.Equal(t, "4", got[2].Message)

		assert.Len(t, a.ForCategory("dns", 1), 1)
		assert.Equal(t, "4", a.ForCategory("dns", 1)[0].Message)
	})

	t.Run("Reset", func(t *testing.T) {
		a := NewActivityLog(3)
		a.Add(Entry{Message: "x"})
		a.Reset()
		assert.Zero(t, a.Len())
		assert.Empty(t, a.Recent(3))
	})

	t.Run("String", func(t *testing.T) {
		e := Entry{Time: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), Level: "warn", Message: "m"}
		assert.Equal(t, "09:30:00 warn  console: m", e.String())
	})
}

func TestJSONLogFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, JSON: true, Activity: NewActivityLog(1)})

	l.Info("json test", "key", "value")

	var data map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "json test", data["msg"])
	assert.Equal(t, "value", data["key"])
	assert.Equal(t, "INFO", data["level"])
}
