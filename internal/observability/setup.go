package observability

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/iamwavecut/groupwarden"

var registerOnce sync.Once

// Init registers metrics, installs the tracer provider and builds the audit logger.
// The returned function flushes both.
func Init(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			verdictsTotal,
			commandsTotal,
			sweepItemsTotal,
			platformRequestsTotal,
			updateDuration,
		)
	})

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	setAuditLogger(logger.Named("audit"))

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		_ = logger.Sync()
		return tp.Shutdown(ctx)
	}, nil
}

// Tracer returns the process tracer; before Init it is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
