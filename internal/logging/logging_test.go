package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/thanhnp/ledger-node/internal/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(config.LogConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	log.WithField("peer", "10.0.0.1:5000").Info("[consensus] peer skipped")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, buf.String())
	}
	if entry["peer"] != "10.0.0.1:5000" || entry["msg"] != "[consensus] peer skipped" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
}
