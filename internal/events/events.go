// Package events is the audit/messaging edge of the order workflow. The
// workflow emits exactly one event per successful transition, after the
// recomputed sheet is persisted.
package events

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Order lifecycle event names.
const (
	OrderCheckout  = "order.checkout"
	OrderConfirm   = "order.confirm"
	OrderReject    = "order.reject"
	OrderFullfill  = "order.fullfill"
	OrderDelivered = "order.delivery.delivered"
	OrderReturned  = "order.delivery.returned"
	OrderPaid      = "order.payment.paid"
	OrderRefunded  = "order.payment.refunded"
)

// Event is one emitted lifecycle fact.
type Event struct {
	ID      string
	Name    string
	Payload map[string]any
	At      time.Time
}

// Emitter is what the order workflow talks to.
type Emitter interface {
	Emit(ctx context.Context, name string, payload map[string]any)
}

// Dispatcher is the in-process emitter: it assigns event ids, logs and
// counts. Subscribers (messaging, audit sinks) attach via Subscribe.
type Dispatcher struct {
	log     *zap.Logger
	emitted *prometheus.CounterVec

	mu   sync.RWMutex
	subs []func(Event)
}

type DispatcherParam struct {
	fx.In

	Log        *zap.Logger
	Registerer prometheus.Registerer `optional:"true"`
}

func NewDispatcher(p DispatcherParam) *Dispatcher {
	d := &Dispatcher{log: p.Log.Named("events")}
	if p.Registerer != nil {
		d.emitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartforge_events_emitted_total",
			Help: "Lifecycle events emitted per name.",
		}, []string{"name"})
		p.Registerer.MustRegister(d.emitted)
	}
	return d
}

// Subscribe attaches a synchronous subscriber. Intended for process boot,
// not per-request use.
func (d *Dispatcher) Subscribe(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, fn)
}

func (d *Dispatcher) Emit(ctx context.Context, name string, payload map[string]any) {
	evt := Event{
		ID:      ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String(),
		Name:    name,
		Payload: payload,
		At:      time.Now().UTC(),
	}
	if d.emitted != nil {
		d.emitted.WithLabelValues(name).Inc()
	}
	d.log.Info("event emitted", zap.String("event_id", evt.ID), zap.String("name", name), zap.Any("payload", payload))

	d.mu.RLock()
	subs := make([]func(Event), len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()
	for _, fn := range subs {
		fn(evt)
	}
}

var Module = fx.Module("events",
	fx.Provide(NewDispatcher),
	fx.Provide(func(d *Dispatcher) Emitter { return d }),
)
