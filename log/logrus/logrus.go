package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/casstream"
)

var _ casstream.Logger = Logger{}

// Logger adapts a *logrus.Entry. A field named "err" is moved to
// logrus.ErrorKey so formatters and hooks treat it as the entry's error.
type Logger struct{ E *logrus.Entry }

func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "casstream")}
}

func (l Logger) Debug(msg string, f casstream.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f casstream.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f casstream.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f casstream.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f casstream.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
