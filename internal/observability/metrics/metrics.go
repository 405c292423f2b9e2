package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	onboardings      metric.Int64Counter
	chargeOutcomes   metric.Int64Counter
	webhookEvents    metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
	reconcileMissing metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "chargeway"
	}
	meter := provider.Meter(name)

	onboardings, err := meter.Int64Counter("chargeway_onboardings_total")
	if err != nil {
		return nil, err
	}
	chargeOutcomes, err := meter.Int64Counter("chargeway_charge_outcomes_total")
	if err != nil {
		return nil, err
	}
	webhookEvents, err := meter.Int64Counter("chargeway_webhook_events_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("chargeway_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}
	reconcileMissing, err := meter.Int64Counter("chargeway_recon_missing_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		onboardings:      onboardings,
		chargeOutcomes:   chargeOutcomes,
		webhookEvents:    webhookEvents,
		rateLimitDenied:  rateLimitDenied,
		reconcileMissing: reconcileMissing,
	}, nil
}

// RecordOnboarding increments onboarding attempts by result.
func (m *Metrics) RecordOnboarding(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.onboardings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordChargeOutcome increments per-customer charge outcomes.
func (m *Metrics) RecordChargeOutcome(ctx context.Context, typeCode, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("type_code", strings.TrimSpace(typeCode)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.chargeOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWebhookEvent increments webhook intake counts.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, eventType, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconMissing counts customers found missing upstream during audits.
func (m *Metrics) RecordReconMissing(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.reconcileMissing.Add(ctx, count)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"result":     {},
	"status":     {},
	"type_code":  {},
	"provider":   {},
	"event_type": {},
	"endpoint":   {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
