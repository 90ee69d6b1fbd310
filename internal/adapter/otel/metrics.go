package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "customerapi"

// Metrics holds the customer service metric instruments.
type Metrics struct {
	CustomersCreated metric.Int64Counter
	CustomerLookups  metric.Int64Counter
	CacheHits        metric.Int64Counter
	Faults           metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom creates all metric instruments on mp.
func NewMetricsFrom(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CustomersCreated, err = meter.Int64Counter("customerapi.customers.created",
		metric.WithDescription("Number of customers created"))
	if err != nil {
		return nil, err
	}

	m.CustomerLookups, err = meter.Int64Counter("customerapi.customers.lookups",
		metric.WithDescription("Number of customer lookups by outcome"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("customerapi.cache.hits",
		metric.WithDescription("Number of customer lookups served from cache"))
	if err != nil {
		return nil, err
	}

	m.Faults, err = meter.Int64Counter("customerapi.faults",
		metric.WithDescription("Number of fault documents rendered by code"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Created records a successful create. Safe on a nil receiver.
func (m *Metrics) Created(ctx context.Context) {
	if m == nil {
		return
	}
	m.CustomersCreated.Add(ctx, 1)
}

// Lookup records a lookup outcome ("found", "not_found", "error").
func (m *Metrics) Lookup(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.CustomerLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// CacheHit records a lookup answered by the read cache.
func (m *Metrics) CacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1)
}

// Fault records a rendered fault document.
func (m *Metrics) Fault(ctx context.Context, code string, status int) {
	if m == nil {
		return
	}
	m.Faults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.Int("http.status", status),
	))
}
