// Package telemetry configures OpenTelemetry metrics and records sync
// observations against them.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	apimetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ServiceName identifies this process in exported metrics.
const ServiceName = "listings-cli"

// ExportInterval is how often metrics are pushed to the collector.
const ExportInterval = 15 * time.Second

// Config controls metrics export.
type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Version  string
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// Init configures the global meter provider. When export is disabled a
// no-op provider is installed.
func Init(ctx context.Context, cfg Config) (apimetric.MeterProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		mp := noop.NewMeterProvider()
		otel.SetMeterProvider(mp)
		return mp, func(context.Context) error { return nil }, nil
	}

	opts := []otlpmetrichttp.Option{}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		host, insecure, err := parseEndpoint(endpoint)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, otlpmetrichttp.WithEndpoint(host))
		if insecure || cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
	} else if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(ExportInterval))),
		sdkmetric.WithResource(newResource(cfg.Version)),
	)
	otel.SetMeterProvider(mp)

	return mp, mp.Shutdown, nil
}

func newResource(version string) *resource.Resource {
	attrs := []attribute.KeyValue{attribute.String("service.name", ServiceName)}
	if version != "" {
		attrs = append(attrs, attribute.String("service.version", version))
	}
	return resource.NewSchemaless(attrs...)
}

// parseEndpoint accepts host:port or a URL. Plain http URLs are insecure.
func parseEndpoint(raw string) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse otlp endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("parse otlp endpoint: missing host in %q", raw)
	}
	return parsed.Host, parsed.Scheme != "https", nil
}
