// Package otel exports pool metrics through an OpenTelemetry MeterProvider.
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/IvanBrykalov/keyedpool/pool"
)

const scope = "github.com/IvanBrykalov/keyedpool"

// Adapter implements pool.Metrics with OpenTelemetry Int64 counters.
type Adapter struct {
	created metric.Int64Counter
	reused  metric.Int64Counter
	missed  metric.Int64Counter
	evicted metric.Int64Counter
	killed  metric.Int64Counter

	common  metric.AddOption
	reasons map[pool.KillReason]metric.AddOption
}

// New creates the counters on mp (nil => the global MeterProvider). Every
// data point carries attrs; instrument names start with prefix.
func New(mp metric.MeterProvider, prefix string, attrs ...attribute.KeyValue) (*Adapter, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(scope)

	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(prefix+name, metric.WithDescription(desc), metric.WithUnit("{object}"))
		errs = append(errs, err)
		return c
	}
	a := &Adapter{
		created: counter("objects_created", "Objects created and accepted into the pool"),
		reused:  counter("objects_reused", "Obtains served by an existing object"),
		missed:  counter("obtain_misses", "Obtains that ended without an object"),
		evicted: counter("objects_evicted", "Objects dropped by an eviction sweep"),
		killed:  counter("objects_killed", "Objects disposed, by reason"),
		common:  metric.WithAttributeSet(attribute.NewSet(attrs...)),
		reasons: make(map[pool.KillReason]metric.AddOption),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for _, r := range []pool.KillReason{pool.KillInvalid, pool.KillMarked, pool.KillRejected, pool.KillShutdown} {
		withReason := append(append([]attribute.KeyValue(nil), attrs...), attribute.String("reason", r.String()))
		a.reasons[r] = metric.WithAttributeSet(attribute.NewSet(withReason...))
	}
	return a, nil
}

func (a *Adapter) Created() { a.created.Add(context.Background(), 1, a.common) }
func (a *Adapter) Reused()  { a.reused.Add(context.Background(), 1, a.common) }
func (a *Adapter) Missed()  { a.missed.Add(context.Background(), 1, a.common) }
func (a *Adapter) Evicted() { a.evicted.Add(context.Background(), 1, a.common) }

func (a *Adapter) Killed(r pool.KillReason) {
	opt, ok := a.reasons[r]
	if !ok {
		opt = a.common
	}
	a.killed.Add(context.Background(), 1, opt)
}

var _ pool.Metrics = (*Adapter)(nil)
