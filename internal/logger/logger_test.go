package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_JSONToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.log")
	log := New(Config{Level: "debug", Format: "json", Output: path, MaxSize: 1})

	log.For("ratchet", "sub-1").WithField("level", 2).Info("Stop loss ratcheted.")
	log.WithComponent("desk").Debug("debug line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["component"] != "ratchet" || entry["account"] != "sub-1" || entry["msg"] != "Stop loss ratcheted." {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.log")
	log := New(Config{Level: "warn", Format: "json", Output: path})

	log.Info("dropped")
	log.WithAccount("sub-2").Warn("kept")

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Fatalf("level filter not applied:\n%s", data)
	}
}

func TestFor_OmitsEmptyAccount(t *testing.T) {
	entry := Nop().For("copytrade", "")
	if _, ok := entry.Data["account"]; ok {
		t.Fatal("empty account should not be logged")
	}
	if entry.Data["component"] != "copytrade" {
		t.Fatalf("component missing: %v", entry.Data)
	}
}
