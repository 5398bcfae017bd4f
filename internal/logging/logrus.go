package logging

import "github.com/sirupsen/logrus"

// logrusAdapter adapts a *logrus.Logger to the Logger interface. kv pairs
// are folded into logrus.Fields two-at-a-time; a trailing odd argument is
// logged under the key "extra".
type logrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps l as a Logger. A nil l uses logrus.StandardLogger().
func NewLogrusAdapter(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2+1)
	i := 0
	for ; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = "arg"
		}
		f[key] = kv[i+1]
	}
	if i < len(kv) {
		f["extra"] = kv[i]
	}
	return f
}

func (a *logrusAdapter) Debug(msg string, kv ...any) { a.entry.WithFields(fields(kv)).Debug(msg) }
func (a *logrusAdapter) Info(msg string, kv ...any)  { a.entry.WithFields(fields(kv)).Info(msg) }
func (a *logrusAdapter) Warn(msg string, kv ...any)  { a.entry.WithFields(fields(kv)).Warn(msg) }
func (a *logrusAdapter) Error(msg string, kv ...any) { a.entry.WithFields(fields(kv)).Error(msg) }
