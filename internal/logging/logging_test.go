package logging_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"workq/internal/logging"
	"workq/internal/testsupport"
)

func TestNewJSONWritesStructuredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("queue swept",
		logging.String("queue", "jobs"),
		logging.Int64("reclaimed", 3),
		logging.Error(errors.New("boom")))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, data)
	}
	if record["msg"] != "queue swept" {
		t.Fatalf("msg = %v, want queue swept", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v, want info", record["level"])
	}
	if record["queue"] != "jobs" {
		t.Fatalf("queue = %v, want jobs", record["queue"])
	}
	if record["error"] != "boom" {
		t.Fatalf("error = %v, want boom", record["error"])
	}
}

func TestNewConsoleRendersSingleLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	component := logging.NewComponentLogger(logger, "sweeper")
	component.Info("pass complete", logging.Int64("collected", 7))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimRight(string(data), "\n")
	if strings.Count(line, "\n") != 0 {
		t.Fatalf("expected one line, got %q", line)
	}
	for _, fragment := range []string{"INFO", "[sweeper]", "pass complete", "collected=7"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("line %q missing %q", line, fragment)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn record missing: %s", out)
	}
}

func TestNewFromConfigWritesUnderLogDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("hello")

	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "workq.log")); err != nil {
		t.Fatalf("expected log file under log dir: %v", err)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger == nil {
		t.Fatal("NewNop returned nil")
	}
	logger.Error("goes nowhere", logging.String("k", "v"))
}
