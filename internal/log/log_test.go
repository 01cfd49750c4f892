package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "id", "t1")
	Error("shown error", errors.New("boom"), "id", "t2")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn id=t1") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown error err=boom id=t2") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestQuotedValues(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Info("item added", "title", "Plan user interviews", "odd")

	out := buf.String()
	if !strings.Contains(out, `title="Plan user interviews"`) {
		t.Errorf("expected quoted title, got %q", out)
	}
	if strings.Contains(out, "odd") {
		t.Errorf("trailing odd key should be dropped, got %q", out)
	}
}
