package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(3) // debug level
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Error("e")
	l.Warn("w")
	l.Info("i")
	l.Verbose("v")
	l.Debug("d")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), output)
	}

	wantPrefixes := []string{"[ERR]", "[WRN]", "[INF]", "[VRB]", "[DBG]"}
	for i, prefix := range wantPrefixes {
		if !strings.Contains(lines[i], prefix) {
			t.Errorf("line %d %q missing prefix %q", i, lines[i], prefix)
		}
	}
}

func TestLogger_QuietMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(0) // quiet
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Info("should not appear")
	l.Verbose("should not appear")
	l.Debug("should not appear")
	l.Error("always appears")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 1 {
		t.Errorf("expected 1 line in quiet mode, got %d:\n%s", len(lines), output)
	}
}

func TestLogger_Timestamps(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)
	l.SetTimestamps(true)

	l.Info("test")

	output := buf.String()
	// Timestamp format is "HH:MM:SS.mmm"
	if !strings.Contains(output, ":") || len(output) < 15 {
		t.Errorf("expected timestamp prefix, got %q", output)
	}
}

func TestLogger_WarnLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1) // normal
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Warn("warning message")

	if !strings.Contains(buf.String(), "[WRN]") {
		t.Errorf("expected [WRN] prefix, got %q", buf.String())
	}
}

func TestLogger_SetOutput(t *testing.T) {
	var first, second bytes.Buffer
	l := NewLogger(1)
	l.SetTimestamps(false)

	l.SetOutput(&first)
	l.Info("one")

	l.SetOutput(&second)
	l.Info("two")

	if !strings.Contains(first.String(), "one") || strings.Contains(first.String(), "two") {
		t.Errorf("first = %q", first.String())
	}
	if !strings.Contains(second.String(), "two") {
		t.Errorf("second = %q", second.String())
	}
}

func TestLogger_Nil(t *testing.T) {
	var l *Logger
	l.SetOutput(&bytes.Buffer{})
	l.SetTimestamps(true)
	l.Error("dropped")
	l.Debug("dropped")
	if l.Enabled(LogQuiet) {
		t.Error("nil Logger should report nothing enabled")
	}
	if l.Level() != LogQuiet {
		t.Errorf("Level() = %d, want quiet", l.Level())
	}
}

func TestLogger_Enabled(t *testing.T) {
	l := NewLogger(2)
	tests := []struct {
		lvl  LogLevel
		want bool
	}{
		{LogQuiet, true},
		{LogNormal, true},
		{LogVerbose, true},
		{LogDebug, false},
	}
	for _, tt := range tests {
		if got := l.Enabled(tt.lvl); got != tt.want {
			t.Errorf("Enabled(%d) = %v, want %v", tt.lvl, got, tt.want)
		}
	}
}
