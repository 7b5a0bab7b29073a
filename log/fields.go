package log

import (
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Internal mark the error severe, due to issues in code.
	Internal = zap.String("severe_error", "internal")
)

func ByteField(key string, data []byte) zap.Field {
	if utf8.Valid(data) {
		return zap.ByteString(key, data)
	}
	return zap.Binary(key, data)
}

func IP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func Stage(stage string) zap.Field {
	return zap.String("stage", stage)
}

func Zone(name string) zap.Field {
	return zap.String("zone", name)
}

func Record(name string) zap.Field {
	return zap.String("record", name)
}

type elapsed struct {
	t   time.Time
	key string
}

func (v *elapsed) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddDuration(v.key, time.Since(v.t))
	return nil
}

// Elapsed reports the time passed since its creation every time it is logged.
func Elapsed(key string) zap.Field {
	return zap.Inline(&elapsed{
		t:   time.Now(),
		key: key,
	})
}
