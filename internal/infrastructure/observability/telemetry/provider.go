package telemetry

import (
	"github.com/skyvolt/storefront/internal/infrastructure/observability/prometrics"
	"github.com/skyvolt/storefront/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics *prometrics.Registry
}

// New assembles the Telemetry handed to use cases. The well-known instruments
// are registered eagerly so their names appear in /metrics from process start.
func New(tracer observability.Tracer, logger observability.Logger, metrics *prometrics.Registry) observability.Telemetry {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	p := &provider{tracer: tracer, logger: logger, metrics: metrics}
	if metrics != nil {
		metrics.Counter(observability.MUsecaseRequests, "Total number of use case invocations.", "use_case", "outcome")
		metrics.Histogram(observability.MUsecaseDuration, "Duration of use case execution in seconds.", nil, "use_case")
		metrics.Counter(observability.MHTTPRequests, "Total number of HTTP requests.", "method", "route", "status")
		metrics.Histogram(observability.MHTTPRequestDuration, "Duration of HTTP request handling in seconds.", nil, "method", "route", "status")
		metrics.Counter(observability.MExternalRequests, "Total number of outbound calls to external peers.", "peer", "endpoint", "outcome")
		metrics.Histogram(observability.MExternalRequestDuration, "Duration of outbound external calls in seconds.", nil, "peer", "endpoint")
		metrics.Counter(observability.MNotificationFailures, "Count of best-effort notification dispatch failures.", "kind")
	}
	return p
}

func (p *provider) Tracer() observability.Tracer { return p.tracer }
func (p *provider) Logger() observability.Logger { return p.logger }

func (p *provider) Counter(name observability.MetricKey) observability.Counter {
	if p.metrics == nil {
		return nil
	}
	return p.metrics.Counter(name, "")
}

func (p *provider) Histogram(name observability.MetricKey) observability.Histogram {
	if p.metrics == nil {
		return nil
	}
	return p.metrics.Histogram(name, "", nil)
}
