package service

import (
	"log/slog"

	"github.com/target/todo-platform/internal/observability/metrics"
)

// Telemetry groups the optional logger and metrics sinks shared by the identity services.
type Telemetry struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (t Telemetry) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
