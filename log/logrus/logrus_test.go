package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/casstream"
)

func TestLoggerForwardsFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("store ready", casstream.Fields{"ns": "video"})
	l.Warn("contention timeout", casstream.Fields{"attempts": 3})
	l.Error("write release failed", casstream.Fields{"err": errors.New("boom")})

	entries := hook.AllEntries()
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d", len(entries))
	}
	if entries[0].Level != logrus.DebugLevel || entries[0].Data["ns"] != "video" {
		t.Fatalf("debug entry: %+v", entries[0])
	}
	if entries[0].Data["component"] != "casstream" {
		t.Fatalf("component field missing: %+v", entries[0].Data)
	}
	if entries[1].Level != logrus.WarnLevel || entries[1].Data["attempts"] != 3 {
		t.Fatalf("warn entry: %+v", entries[1])
	}
	last := hook.LastEntry()
	if last.Level != logrus.ErrorLevel {
		t.Fatalf("level = %v", last.Level)
	}
	if err, ok := last.Data[logrus.ErrorKey].(error); !ok || err.Error() != "boom" {
		t.Fatalf("error key = %v", last.Data[logrus.ErrorKey])
	}
	if _, ok := last.Data["err"]; ok {
		t.Fatalf("err should have moved to %q", logrus.ErrorKey)
	}
}
