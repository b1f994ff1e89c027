package slog

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/unkn0wn-root/casstream"
)

func TestLoggerWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})
	l := New(stdslog.New(h))

	l.Debug("dropped", casstream.Fields{"x": 1})
	l.Warn("contention timeout", casstream.Fields{"key": "master:ns:s", "attempts": 4})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("want 1 line (debug filtered), got %d: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["msg"] != "contention timeout" || rec["level"] != "WARN" {
		t.Fatalf("record: %v", rec)
	}
	if rec["key"] != "master:ns:s" || rec["attempts"] != float64(4) || rec["component"] != "casstream" {
		t.Fatalf("attrs: %v", rec)
	}
}
