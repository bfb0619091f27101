// Package attr provides slog attribute helpers shared by every module.
package attr

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// String creates a string attribute.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int creates an int attribute.
func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

// Bool creates a bool attribute.
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Any creates an attribute for an arbitrary value.
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Duration creates a duration attribute.
func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

// Time creates a time attribute.
func Time(key string, value time.Time) slog.Attr {
	return slog.Time(key, value)
}

// Error creates the conventional "error" attribute. A nil error logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// RunID logs a run identifier under the given key.
func RunID(key string, id uuid.UUID) slog.Attr {
	return slog.String(key, id.String())
}

// StationKey logs a station key.
func StationKey(key string) slog.Attr {
	return slog.String("station_key", key)
}

// ExtractCorrelationID returns the request id set by the HTTP middleware, or an
// empty correlation_id attribute when the context did not come from a request.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	if ctx == nil {
		return slog.String("correlation_id", "")
	}
	return slog.String("correlation_id", middleware.GetReqID(ctx))
}
