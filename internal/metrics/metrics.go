// Package metrics wires the OTEL meter provider to a Prometheus exporter and
// serves the scrape endpoint.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

// NewMeterProvider installs a Prometheus-backed meter provider as the OTEL
// global. Instruments created through otel.Meter anywhere in the process are
// exported on the scrape endpoint.
func NewMeterProvider(serviceName string) (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(
			resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName)),
		),
	)
	otel.SetMeterProvider(provider)

	return provider, nil
}

// ServePrometheus blocks serving /metrics on the given port.
func ServePrometheus(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
