// Package logging tests for the structured logger.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// TestJSONOutput verifies entries are line-delimited JSON with fields.
func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	log.Info("sync cycle finished", Fields{"drained": 3, "success": true})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}

	if entry["msg"] != "sync cycle finished" {
		t.Errorf("msg = %v, want sync cycle finished", entry["msg"])
	}
	if entry["drained"] != float64(3) {
		t.Errorf("drained = %v, want 3", entry["drained"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

// TestErrorField verifies the error is attached to the entry.
func TestErrorField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	log.Error("cache write failed", errors.New("disk full"), Fields{"key": "products-cache"})

	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("output missing error: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "products-cache") {
		t.Errorf("output missing context field: %s", buf.String())
	}
}

// TestLevelFiltering verifies entries below the minimum level are dropped.
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Debug("noisy", nil)
	log.Info("still noisy", nil)

	if buf.Len() != 0 {
		t.Errorf("below-level entries were written: %s", buf.String())
	}

	log.Warn("important", nil)
	if buf.Len() == 0 {
		t.Error("warn entry should be written")
	}
}

// TestBadLevelFallsBack verifies an unknown level defaults to info.
func TestBadLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "loud")

	log.Info("hello", nil)
	if buf.Len() == 0 {
		t.Error("info entry should be written with fallback level")
	}
}
