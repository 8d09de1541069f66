package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInterceptAndLevel(t *testing.T) {
	if err := Init(Config{Enabled: true, Level: "warn"}, t.TempDir()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	var buf bytes.Buffer
	Intercept(&buf)
	defer Restore()

	Info("dropped", "k", 1)
	Warn("kept", "provider", "groq")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "provider=groq") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestInitWritesRelativeFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(Config{Enabled: true, Level: "debug", File: "logs/echochat.log"}, dir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Debug("to file")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "echochat.log"))
	if err != nil {
		t.Fatalf("log file should exist: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("log file content = %q", data)
	}

	if err := Init(Config{Enabled: false}, dir); err != nil {
		t.Fatalf("Init(disabled) error = %v", err)
	}
}

func TestDisabledIgnoresIntercept(t *testing.T) {
	if err := Init(Config{Enabled: false}, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	var buf bytes.Buffer
	Intercept(&buf)
	defer Restore()

	Error("silent")
	if buf.Len() != 0 {
		t.Fatalf("disabled logger wrote %q", buf.String())
	}
}
