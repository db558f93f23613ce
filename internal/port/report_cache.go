package port

import (
	"context"
	"time"
)

type ReportCache interface {
	// GetReport unmarshals a cached report into v, returning false on miss.
	GetReport(ctx context.Context, key string, v any) (bool, error)

	// SetReport stores a report with an explicit TTL.
	SetReport(ctx context.Context, key string, v any, ttl time.Duration) error
}
