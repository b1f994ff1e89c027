package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/casstream"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("d", nil)
	l.Info("i", casstream.Fields{"b": 2, "a": 1})
	l.Warn("w", casstream.Fields{"key": "master:ns:s"})
	l.Error("e", casstream.Fields{"err": errors.New("boom")})

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("want 4 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Fatalf("entry %d: level %v want %v", i, e.Level, wantLevels[i])
		}
		if e.LoggerName != "casstream" {
			t.Fatalf("entry %d: logger name %q", i, e.LoggerName)
		}
	}
	if got := entries[1].Context; len(got) != 2 || got[0].Key != "a" || got[1].Key != "b" {
		t.Fatalf("fields not sorted: %+v", got)
	}
	if m := entries[3].ContextMap(); m["err"] != "boom" {
		t.Fatalf("err field = %v", m["err"])
	}
}
