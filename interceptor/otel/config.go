// Package otel provides OpenTelemetry tracing and metrics interceptors for
// rpc-core's command dispatch, adapted from the teacher's RPC telemetry
// layer. Streaming and metadata-based trace rules are dropped since
// rpc-core has neither concept; IP-range and command-name trace rules are
// kept.
package otel

import (
	"net"
	"strings"

	"go.opentelemetry.io/otel/metric"
)

// Config configures the OpenTelemetry interceptors.
type Config struct {
	// EnableTracing enables distributed tracing. Default is true.
	EnableTracing bool

	// EnableMetrics enables metrics collection. Default is true.
	EnableMetrics bool

	// MeterProvider for metrics. If nil, uses context.Meter().
	MeterProvider metric.MeterProvider

	// RecordPayloadSize records request/response sizes in metrics. Default is true.
	RecordPayloadSize bool

	// TraceRules defines custom rules for always-trace scenarios. New
	// compiles them (an invalid CIDR is an error) and ShouldTrace evaluates
	// them; the interceptors returned by this package do not consult them,
	// so they do not override the OTEL sampler's decision.
	TraceRules *TraceRules
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		EnableTracing:     true,
		EnableMetrics:     true,
		RecordPayloadSize: true,
	}
}

// TraceRules defines conditions for always-trace scenarios.
type TraceRules struct {
	// IPRanges are CIDR blocks that should always be traced.
	IPRanges []string

	// Cmds are specific command names to always trace.
	Cmds []string

	cidrs []*net.IPNet
}

func (r *TraceRules) compile() error {
	if r == nil {
		return nil
	}
	r.cidrs = make([]*net.IPNet, 0, len(r.IPRanges))
	for _, cidr := range r.IPRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return err
		}
		r.cidrs = append(r.cidrs, network)
	}
	return nil
}

func (r *TraceRules) matchesIP(ipStr string) bool {
	if r == nil || len(r.cidrs) == 0 {
		return false
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range r.cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func (r *TraceRules) matchesCmd(cmd string) bool {
	if r == nil || len(r.Cmds) == 0 {
		return false
	}
	for _, c := range r.Cmds {
		if c == cmd || strings.HasSuffix(cmd, "/"+c) {
			return true
		}
	}
	return false
}

// ShouldTrace returns true if any trace rule matches the given request info.
func (r *TraceRules) ShouldTrace(ip, cmd string) bool {
	if r == nil {
		return false
	}
	return r.matchesIP(ip) || r.matchesCmd(cmd)
}
