package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/campushub/notifier/internal/util"
)

// Standard fields used across the notifier. Keeping field names in one
// place keeps log output queryable.

// Account is the sender account attempting a delivery.
func Account(v string) zap.Field {
	return zap.String("account", v)
}

// Recipient is the destination address of a message, masked.
func Recipient(v string) zap.Field {
	return zap.String("recipient", util.MaskEmail(v))
}

// Email is a user's email address, masked before it reaches the logs.
func Email(v string) zap.Field {
	return zap.String("email", util.MaskEmail(v))
}

// JobID identifies a queued dispatch job.
func JobID(v string) zap.Field {
	return zap.String("job_id", v)
}

// Subject is the message subject line.
func Subject(v string) zap.Field {
	return zap.String("subject", v)
}

// Component identifies the emitting component.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op names the current operation.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err wraps an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count is a generic count.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Duration reports elapsed time.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Status is an HTTP status code.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Method is an HTTP method.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path is an HTTP request path.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// String is a generic string field.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int is a generic int field.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool is a generic bool field.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

// Any is a generic field for arbitrary values.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
