package obslog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitFromEnvWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.log")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", path)

	restore := Replace(nil)
	defer restore()
	if err := InitFromEnv(); err != nil {
		t.Fatalf("init: %v", err)
	}
	L().Debug("thread_scanned", zap.Int("candidates", 2))
	_ = L().Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(b))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not json: %q", line)
	}
	if entry["msg"] != "thread_scanned" || entry["level"] != "debug" || entry["candidates"] != float64(2) {
		t.Fatalf("entry = %v", entry)
	}
}

func TestReplaceRestores(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	L().Info("post_published")
	restore()
	L().Info("dropped")

	if logs.Len() != 1 || logs.All()[0].Message != "post_published" {
		t.Fatalf("observed %v", logs.All())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
