package logger

import (
	"context"
	"fmt"
)

// Leveled adapts a Logger to the printf-free leveled interface used by HTTP
// client libraries: a message followed by alternating keys and values.
type Leveled struct {
	l Logger
}

// NewLeveled wraps l.
func NewLeveled(l Logger) *Leveled {
	return &Leveled{l: l}
}

func (a *Leveled) Error(msg string, keysAndValues ...interface{}) {
	a.l.Error(context.Background(), msg, pairs(keysAndValues)...)
}

func (a *Leveled) Info(msg string, keysAndValues ...interface{}) {
	a.l.Info(context.Background(), msg, pairs(keysAndValues)...)
}

// Debug is also used for per-attempt request lines, which are noisy.
func (a *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	a.l.Debug(context.Background(), msg, pairs(keysAndValues)...)
}

func (a *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	a.l.Warn(context.Background(), msg, pairs(keysAndValues)...)
}

func pairs(kv []interface{}) []Field {
	fields := make([]Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			fields = append(fields, Any("!BADKEY", key))
			break
		}
		fields = append(fields, Any(key, kv[i+1]))
	}
	return fields
}
