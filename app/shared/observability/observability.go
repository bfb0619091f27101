// Package observability bundles the logger, tracer and metric sinks handed to
// every module.
package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/Black-And-White-Club/keyquest/app/shared/httpmw"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Namespace prefixes every exported metric.
const Namespace = "keyquest"

// Config selects logger and environment settings.
type Config struct {
	Environment string
	LogLevel    string
	ServiceName string
}

// Observability is passed by value to module constructors.
type Observability struct {
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Registry    *prometheus.Registry
	Metrics     metrics.OperationMetrics
	HTTPMetrics *httpmw.RequestMetrics
}

// New builds JSON logging to w, a tracer from the global otel provider and a
// fresh prometheus registry with the process collectors.
func New(cfg Config, w io.Writer) (Observability, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = Namespace
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})).With(
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opMetrics, err := metrics.NewPrometheusMetrics(reg, Namespace)
	if err != nil {
		return Observability{}, err
	}
	httpMetrics, err := httpmw.NewRequestMetrics(reg, Namespace)
	if err != nil {
		return Observability{}, err
	}

	return Observability{
		Logger:      logger,
		Tracer:      otel.Tracer(cfg.ServiceName),
		Registry:    reg,
		Metrics:     opMetrics,
		HTTPMetrics: httpMetrics,
	}, nil
}

// NewNoop discards logs, spans and metrics. Used by tests and tooling.
func NewNoop() Observability {
	return Observability{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   noop.NewTracerProvider().Tracer("noop"),
		Registry: prometheus.NewRegistry(),
		Metrics:  metrics.NewNoop(),
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
