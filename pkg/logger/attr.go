package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under the key "error". Nil errors produce an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// Role returns a role attribute.
func Role(role any) slog.Attr {
	if role == nil {
		return slog.Attr{}
	}
	return slog.Any("role", role)
}

// RequestID returns a request_id attribute.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Provider records an OAuth provider name.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// TaskID returns a task_id attribute.
func TaskID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("task_id", id)
}

// RetryCount returns the attempt number of a retried operation.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration returns a duration attribute.
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the emitting subsystem, e.g. "auth" or "queue".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records a domain event name such as "user.logged_in".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
