// Package component defines the contract every kernel component implements
// (spec §3.8, §4.5): a stable pin map, pure evaluation against an immutable
// input snapshot, and a reset hook. Mutation is confined to a component's
// own state; evaluate/on_clock_edge never panic (spec §7).
package component

import (
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// PinSpec describes one named pin of a component kind (spec §3.8's
// Pin = (NodeId, direction, BusWidth); the NodeId is bound later by
// sim.Connect, so PinSpec only carries the static direction/width).
type PinSpec struct {
	Name      string
	Direction netlist.Direction
	// Width is the pin's declared width (the standard library fills it from
	// the "Width" attribute), or 0 to leave the node's width to the
	// netlist's width resolution.
	Width signal.Width
}

// OutputDrive is one pin's contribution returned from Evaluate/OnClockEdge.
type OutputDrive struct {
	Signal   signal.Signal
	Strength signal.Strength
}

// EvalResult is the return value of Evaluate and OnClockEdge (spec §4.5).
type EvalResult struct {
	Outputs map[string]OutputDrive
	// InternalDelay overrides PropagationDelay() for just this evaluation,
	// when non-nil (spec §3.9's EvalResult.internal_delay).
	InternalDelay *uint64
}

// Component is the capability set every kernel component implements (spec
// §4.5, §9 "capability set" design note). Implementations must not panic
// from Evaluate or OnClockEdge; an internal fault is reported by driving
// Error on the relevant output instead (spec §7).
type Component interface {
	// Kind returns the factory key this component was built from.
	Kind() string
	// Pins returns the component's pin map. Pin names are stable for the
	// lifetime of the component.
	Pins() []PinSpec
	// Evaluate computes new outputs from a snapshot of current input
	// signals. It must be deterministic given inputs and the component's
	// own state, and must not mutate anything but that state.
	Evaluate(inputs map[string]signal.Signal, time timeevent.Timestamp) EvalResult
	// OnClockEdge is called for sequential components when their clock pin
	// transitions; combinational components may implement it as a no-op.
	OnClockEdge(edge timeevent.Edge, inputs map[string]signal.Signal, time timeevent.Timestamp) EvalResult
	// Reset restores the component to its power-on state.
	Reset()
	// PropagationDelay is the default simulation-time delay between an
	// input change and the resulting scheduled output change.
	PropagationDelay() uint64
}

// Clocked is implemented by sequential components whose clock pin name the
// propagator must know in order to route ClockEdge events (spec §4.4
// dispatch of ClockEdge to "all sequential components whose clock pin maps
// to that node").
type Clocked interface {
	Component
	ClockPin() string
}

// ClockSource is implemented by self-scheduling components (the standard
// library's Clock) whose own output pin periodically toggles without any
// input changing (spec §4.7). The propagator schedules their first edge at
// t=0 and, after each delivered ClockEdge, the next edge after NextDelay.
type ClockSource interface {
	Clocked
	NextDelay(last timeevent.Edge) uint64
}

// AttrMap carries the external builder's component attributes (spec
// §4.5's `add_component(kind, attrs)`), a thin string-keyed map mirroring
// the `.circ` file format's `<a name val>` elements (spec §6.2).
type AttrMap map[string]string
