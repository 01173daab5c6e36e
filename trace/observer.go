// Package trace implements the kernel's observer contract (spec §4.6): a
// synchronous callback interface the propagator invokes on every committed
// signal change, clock edge, completed step and simulation-level event, plus
// two built-in sinks (SQLSink, TableSink) that turn that callback stream
// into something concretely queryable or printable.
package trace

import (
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// SimEvent is the simulation-level event taxonomy an Observer's
// OnSimulationEvent receives (spec §4.6).
type SimEvent uint8

const (
	Started SimEvent = iota
	Stopped
	ResetEvent
	Oscillation
	Timeout
)

func (e SimEvent) String() string {
	switch e {
	case Started:
		return "Started"
	case Stopped:
		return "Stopped"
	case ResetEvent:
		return "Reset"
	case Oscillation:
		return "Oscillation"
	case Timeout:
		return "Timeout"
	default:
		return "?"
	}
}

// Observer is the external chronogram/logging contract (spec §4.6).
// Implementations must not mutate simulator state; they may only read it
// back through the Simulation's public query API.
type Observer interface {
	// OnSignalChange fires once per committed (node, bit) value transition;
	// a multi-bit node changing several bits in one resolution produces one
	// call per bit, in the order netlist.ApplyThreadValue reports them —
	// this spec's concrete reading of "fires on every committed node value
	// change" for buses wider than one bit.
	OnSignalChange(node netlist.NodeId, bit int, old, new signal.Value, time timeevent.Timestamp)
	OnClockEdge(node netlist.NodeId, edge timeevent.Edge, time timeevent.Timestamp)
	OnStepComplete(time timeevent.Timestamp, eventsProcessed uint64)
	OnSimulationEvent(evt SimEvent)
}

// ObserverId is an opaque, globally-unique handle returned by Register.
// Unlike ComponentId/NodeId (spec §3.1's dense arena ids), an observer has
// no arena to index into, so it is minted with rs/xid the way the teacher's
// akita-based stack mints request/entity ids that never need dense reuse.
type ObserverId string

// Registry fan-outs the four Observer callbacks to every registered
// observer, in registration order, and supports RT-3's
// register->unregister->register no-op round-trip.
type Registry struct {
	mu        sync.Mutex
	observers []entry
}

type entry struct {
	id ObserverId
	o  Observer
}

// Register adds o and returns its id.
func (r *Registry) Register(o Observer) ObserverId {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := ObserverId(xid.New().String())
	r.observers = append(r.observers, entry{id: id, o: o})
	return id
}

// Unregister removes the observer with id, if present. A deregistered
// observer's callbacks are never invoked again (spec §4.6).
func (r *Registry) Unregister(id ObserverId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	filtered := r.observers[:0]
	for _, e := range r.observers {
		if e.id != id {
			filtered = append(filtered, e)
		}
	}
	r.observers = filtered
}

// SignalChange fans out OnSignalChange to every registered observer, in
// registration order, synchronously on the propagator's own goroutine.
func (r *Registry) SignalChange(node netlist.NodeId, bit int, old, new signal.Value, time timeevent.Timestamp) {
	for _, e := range r.snapshot() {
		e.o.OnSignalChange(node, bit, old, new, time)
	}
}

// ClockEdge fans out OnClockEdge.
func (r *Registry) ClockEdge(node netlist.NodeId, edge timeevent.Edge, time timeevent.Timestamp) {
	for _, e := range r.snapshot() {
		e.o.OnClockEdge(node, edge, time)
	}
}

// StepComplete fans out OnStepComplete.
func (r *Registry) StepComplete(time timeevent.Timestamp, eventsProcessed uint64) {
	for _, e := range r.snapshot() {
		e.o.OnStepComplete(time, eventsProcessed)
	}
}

// SimulationEvent fans out OnSimulationEvent.
func (r *Registry) SimulationEvent(evt SimEvent) {
	for _, e := range r.snapshot() {
		e.o.OnSimulationEvent(evt)
	}
}

func (r *Registry) snapshot() []entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entry(nil), r.observers...)
}
