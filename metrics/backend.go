package metrics

import (
	"context"
	"time"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// InstrumentBackends wraps factory so that every backend call is counted
// and timed, labelled by operation.
func InstrumentBackends(factory ports.BackendFactory, mc *MetricsCollector) ports.BackendFactory {
	return ports.BackendFactoryFunc(func(ctx context.Context, user domain.DelegatedUser) (ports.NetworkBackend, error) {
		backend, err := factory.NewNetworkBackend(ctx, user)
		if err != nil {
			mc.observe("open", time.Now(), err)
			return nil, err
		}
		return &instrumentedBackend{next: backend, mc: mc}, nil
	})
}

type instrumentedBackend struct {
	next ports.NetworkBackend
	mc   *MetricsCollector
}

func (mc *MetricsCollector) observe(operation string, start time.Time, err error) {
	labels := Labels{"operation": operation}
	mc.IncrementCounter(BackendCallsTotal, labels, 1)
	if err != nil {
		mc.IncrementCounter(BackendErrorsTotal, labels, 1)
	}
	mc.ObserveHistogram(BackendCallDuration, labels, time.Since(start).Seconds())
}

func (b *instrumentedBackend) List(ctx context.Context) ([]ports.RawNetwork, error) {
	start := time.Now()
	networks, err := b.next.List(ctx)
	b.mc.observe("list", start, err)
	return networks, err
}

func (b *instrumentedBackend) Get(ctx context.Context, id string) (ports.RawNetwork, error) {
	start := time.Now()
	network, err := b.next.Get(ctx, id)
	b.mc.observe("get", start, err)
	return network, err
}

func (b *instrumentedBackend) Create(ctx context.Context, network ports.RawNetwork) (string, error) {
	start := time.Now()
	id, err := b.next.Create(ctx, network)
	b.mc.observe("create", start, err)
	return id, err
}

func (b *instrumentedBackend) Update(ctx context.Context, id string, network ports.RawNetwork) error {
	start := time.Now()
	err := b.next.Update(ctx, id, network)
	b.mc.observe("update", start, err)
	return err
}

func (b *instrumentedBackend) Replace(ctx context.Context, id string, network ports.RawNetwork) error {
	start := time.Now()
	err := b.next.Replace(ctx, id, network)
	b.mc.observe("replace", start, err)
	return err
}

func (b *instrumentedBackend) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := b.next.Delete(ctx, id)
	b.mc.observe("delete", start, err)
	return err
}
