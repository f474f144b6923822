package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetup_StderrText(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := Setup(Options{Level: "warn", Stderr: &buf})
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "issue", "bd-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "issue=bd-1") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := Setup(Options{JSON: true, Stderr: &buf})
	logger.Info("synced", "count", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "synced" {
		t.Errorf("msg = %v, want synced", entry["msg"])
	}
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hbsync.log")
	logger, closer := Setup(Options{File: path})
	logger.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing")
}
