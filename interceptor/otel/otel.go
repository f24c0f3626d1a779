package otel

import (
	"time"

	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/telemetry/otel/trace/span"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	ourerrors "github.com/shuai132/rpc-core/errors"
	"github.com/shuai132/rpc-core/interceptor"
)

// Interceptor holds the OTEL instrumentation state for command dispatch.
type Interceptor struct {
	cfg Config

	serverDuration     metric.Float64Histogram
	serverRequestCount metric.Int64Counter
	serverRequestSize  metric.Int64Histogram
	serverResponseSize metric.Int64Histogram

	clientDuration     metric.Float64Histogram
	clientRequestCount metric.Int64Counter
	clientRequestSize  metric.Int64Histogram
	clientResponseSize metric.Int64Histogram
}

// New creates a new OTEL Interceptor with the given configuration.
func New(ctx context.Context, cfg Config) (*Interceptor, error) {
	i := &Interceptor{cfg: cfg}

	if cfg.EnableMetrics {
		if err := i.initMetrics(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.TraceRules != nil {
		if err := cfg.TraceRules.compile(); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Interceptor) initMetrics(ctx context.Context) error {
	var meter metric.Meter
	if i.cfg.MeterProvider != nil {
		meter = i.cfg.MeterProvider.Meter("rpc-core")
	} else {
		meter = context.Meter(ctx)
	}

	var err error

	i.serverDuration, err = meter.Float64Histogram(
		"rpc.server.duration",
		metric.WithDescription("Duration of RPC server command handling in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}
	i.serverRequestCount, err = meter.Int64Counter(
		"rpc.server.request_count",
		metric.WithDescription("Total number of RPC server commands handled"),
	)
	if err != nil {
		return err
	}
	if i.cfg.RecordPayloadSize {
		i.serverRequestSize, err = meter.Int64Histogram(
			"rpc.server.request_size",
			metric.WithDescription("Size of RPC server command payloads in bytes"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return err
		}
		i.serverResponseSize, err = meter.Int64Histogram(
			"rpc.server.response_size",
			metric.WithDescription("Size of RPC server reply payloads in bytes"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return err
		}
	}

	i.clientDuration, err = meter.Float64Histogram(
		"rpc.client.duration",
		metric.WithDescription("Duration of RPC client calls in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}
	i.clientRequestCount, err = meter.Int64Counter(
		"rpc.client.request_count",
		metric.WithDescription("Total number of RPC client calls made"),
	)
	if err != nil {
		return err
	}
	if i.cfg.RecordPayloadSize {
		i.clientRequestSize, err = meter.Int64Histogram(
			"rpc.client.request_size",
			metric.WithDescription("Size of RPC client request payloads in bytes"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return err
		}
		i.clientResponseSize, err = meter.Int64Histogram(
			"rpc.client.response_size",
			metric.WithDescription("Size of RPC client response payloads in bytes"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ServerInterceptor returns an interceptor.ServerInterceptor with tracing
// and metrics.
func (i *Interceptor) ServerInterceptor() interceptor.ServerInterceptor {
	return func(ctx context.Context, data []byte, info *interceptor.ServerInfo, handler interceptor.Handler) ([]byte, error) {
		start := time.Now()

		if i.cfg.EnableTracing {
			var sp span.Span
			ctx, sp = span.New(ctx,
				span.WithName(info.Cmd),
				span.WithSpanStartOption(trace.WithSpanKind(trace.SpanKindServer)),
			)
			defer sp.End()
			sp.Span.SetAttributes(
				attribute.String("rpc.system", "rpc-core"),
				attribute.String("rpc.cmd", info.Cmd),
			)
		}

		if i.cfg.EnableMetrics && i.cfg.RecordPayloadSize && i.serverRequestSize != nil {
			i.serverRequestSize.Record(ctx, int64(len(data)), metric.WithAttributes(attribute.String("rpc_cmd", info.Cmd)))
		}

		resp, err := handler(ctx, data)

		if i.cfg.EnableMetrics {
			duration := float64(time.Since(start).Milliseconds())
			status := "ok"
			if err != nil {
				status = "error"
			}
			attrs := metric.WithAttributes(
				attribute.String("rpc_cmd", info.Cmd),
				attribute.String("rpc_status", status),
			)
			i.serverDuration.Record(ctx, duration, attrs)
			i.serverRequestCount.Add(ctx, 1, attrs)
			if i.cfg.RecordPayloadSize && i.serverResponseSize != nil {
				i.serverResponseSize.Record(ctx, int64(len(resp)), metric.WithAttributes(attribute.String("rpc_cmd", info.Cmd)))
			}
		}

		if err != nil {
			return resp, ourerrors.E(ctx, ourerrors.CatInternal, ourerrors.TypeUnknown, err)
		}
		return resp, nil
	}
}

// ClientInterceptor returns an interceptor.ClientInterceptor with tracing
// and metrics, meant to wrap Rpc.CallSync.
func (i *Interceptor) ClientInterceptor() interceptor.ClientInterceptor {
	return func(ctx context.Context, cmd string, data []byte, invoker interceptor.Invoker) ([]byte, error) {
		start := time.Now()

		if i.cfg.EnableTracing {
			var sp span.Span
			ctx, sp = span.New(ctx,
				span.WithName(cmd),
				span.WithSpanStartOption(trace.WithSpanKind(trace.SpanKindClient)),
			)
			defer sp.End()
			sp.Span.SetAttributes(
				attribute.String("rpc.system", "rpc-core"),
				attribute.String("rpc.cmd", cmd),
			)
			if i.cfg.RecordPayloadSize {
				sp.Span.SetAttributes(attribute.Int("rpc.request.size", len(data)))
			}
		}

		if i.cfg.EnableMetrics && i.cfg.RecordPayloadSize && i.clientRequestSize != nil {
			i.clientRequestSize.Record(ctx, int64(len(data)), metric.WithAttributes(attribute.String("rpc_cmd", cmd)))
		}

		resp, err := invoker(ctx, cmd, data)

		if i.cfg.EnableMetrics {
			duration := float64(time.Since(start).Milliseconds())
			status := "ok"
			if err != nil {
				status = "error"
			}
			attrs := metric.WithAttributes(
				attribute.String("rpc_cmd", cmd),
				attribute.String("rpc_status", status),
			)
			i.clientDuration.Record(ctx, duration, attrs)
			i.clientRequestCount.Add(ctx, 1, attrs)
			if i.cfg.RecordPayloadSize && i.clientResponseSize != nil {
				i.clientResponseSize.Record(ctx, int64(len(resp)), metric.WithAttributes(attribute.String("rpc_cmd", cmd)))
			}
		}

		if err != nil {
			return resp, ourerrors.E(ctx, ourerrors.CatUnavailable, ourerrors.TypeConn, err)
		}
		return resp, nil
	}
}

// NewServerInterceptor creates a server interceptor from a Config.
func NewServerInterceptor(ctx context.Context, cfg Config) (interceptor.ServerInterceptor, error) {
	i, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return i.ServerInterceptor(), nil
}

// NewClientInterceptor creates a client interceptor from a Config.
func NewClientInterceptor(ctx context.Context, cfg Config) (interceptor.ClientInterceptor, error) {
	i, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return i.ClientInterceptor(), nil
}
