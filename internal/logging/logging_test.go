package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("quiet")
	l.Warn("loud", zap.String("list", "Tasks"))
	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") || !strings.Contains(out, "Tasks") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("chatty"); err == nil {
		t.Fatalf("expected error")
	}
	lvl, err := ParseLevel("")
	if err != nil || lvl.String() != "warn" {
		t.Fatalf("default = %v, %v", lvl, err)
	}
}

func TestNewFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "spcrud.log")
	l, closeFn, err := NewFile(path, "debug")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	l.Debug("hello")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(b), "hello") {
		t.Fatalf("log file = %q, %v", b, err)
	}
}
