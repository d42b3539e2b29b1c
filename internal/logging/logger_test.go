package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"echosync/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "echosync.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("case saved", logging.String("case_id", "local-1"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"case_id":"local-1"`) {
		t.Fatalf("expected structured field in output, got %s", data)
	}
	if !strings.Contains(string(data), `"level":"info"`) {
		t.Fatalf("expected lowercase level key, got %s", data)
	}
}

func TestComponentLoggerToleratesNilBase(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "store")
	logger.Info("ignored")
}
