// Package sim is the kernel's externally-facing driver (spec §6.1): it
// wires the component registry, netlist and propagator together behind the
// Builder/Run/Query/Observation API surface a loader (such as a `.circ`
// parser) or headless runner consumes.
package sim

import (
	"fmt"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/component/stdlib"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/propagator"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
	"github.com/sarchlab/logisimcore/trace"
)

// Re-exported id/value types so callers never need to import netlist
// directly for ordinary Builder/Query use.
type (
	ComponentId = netlist.ComponentId
	NodeId      = netlist.NodeId
	Coordinate  = netlist.Coordinate
	Diagnostic  = netlist.Diagnostic
	SplitterSpec = netlist.SplitterSpec
	FanBit      = netlist.FanBit

	// State is the propagator's state-machine value (spec §4.4).
	State = propagator.State
	// StepResult is returned by Step/Tick (spec §6.1).
	StepResult = propagator.StepResult
)

// The propagator's named states, re-exported for callers that only import
// sim.
const (
	Ready          = propagator.Ready
	Running        = propagator.Running
	Settled        = propagator.Settled
	Oscillating    = propagator.Oscillating
	Timeout        = propagator.Timeout
	Overflow       = propagator.Overflow
	BudgetExceeded = propagator.BudgetExceeded
)

// RunResult is returned by Run (spec §6.1: `RunResult { state, stats }`).
type RunResult struct {
	State State
	Stats Stats
}

// ErrPinMismatch is PinMismatch (spec §7): connect named a pin that does
// not exist on the component, or one already bound.
type ErrPinMismatch struct {
	Component ComponentId
	Pin       string
	Reason    string
}

func (e ErrPinMismatch) Error() string {
	return fmt.Sprintf("sim: pin mismatch on component %d pin %q: %s", e.Component, e.Pin, e.Reason)
}

// compEntry is the Builder's record of one component instance: the built
// Component value plus every pin name it has been connect()ed under so
// far. It remains the entry's permanent directory after Finalize too —
// Query/SetInput/Finalize all read through it.
type compEntry struct {
	comp     component.Component
	pinNodes map[string]netlist.NodeId
}

// settable is satisfied by a boundary component whose driven value can be
// forced externally (the standard library's "Pin"); SetInput type-asserts
// to it rather than importing stdlib's own interface, keeping sim's only
// stdlib dependency the registry seeding below.
type settable interface {
	component.Component
	SetValue(signal.Signal)
}

// splitterShape is satisfied by the standard library's Splitter component;
// Finalize type-asserts to it to derive a netlist.SplitterSpec from the
// pins the Builder has already connected, without re-deriving the fan
// pin-naming scheme itself.
type splitterShape interface {
	FanWidths() []signal.Width
	FanPinNames() []string
}

// Simulation is the Simulation value spec §5 describes as owning the
// Netlist, Event Queue and Component state exclusively for the lifetime of
// one circuit.
type Simulation struct {
	reg  *component.Registry
	nl   *netlist.Netlist
	prop *propagator.Propagator
	cfg  Config

	nextID     netlist.ComponentId
	components map[netlist.ComponentId]*compEntry
	finalized  bool

	stats Stats
}

// NewSimulation builds an empty Simulation seeded with the standard
// component library (spec `Simulation::new`).
func NewSimulation(cfg Config) *Simulation {
	reg := component.NewRegistry()
	stdlib.RegisterAll(reg)
	nl := netlist.NewNetlist()

	s := &Simulation{
		reg:        reg,
		nl:         nl,
		cfg:        cfg,
		components: make(map[netlist.ComponentId]*compEntry),
	}
	s.prop = propagator.New(nl, propagator.Config{
		MaxEventsPerInstant: cfg.MaxEventsPerInstant,
		MaxEventsPerRun:     cfg.MaxEventsPerRun,
		RunTimeout:          cfg.RunTimeout,
	})
	s.prop.Observers().Register(&statsObserver{stats: &s.stats})
	return s
}

// Registry exposes the component registry, so a caller may Register a
// user-defined factory (spec §9) before calling AddComponent.
func (s *Simulation) Registry() *component.Registry { return s.reg }

// Netlist exposes the underlying netlist for advanced loader use (e.g. a
// `.circ` parser resolving a tunnel's declared width hint).
func (s *Simulation) Netlist() *netlist.Netlist { return s.nl }

// AddComponent builds a new instance of kind and returns its id (spec
// `sim.add_component`). The error is component.ErrUnknownKind when kind has
// no registered factory.
func (s *Simulation) AddComponent(kind string, attrs component.AttrMap) (ComponentId, error) {
	c, err := s.reg.New(kind, attrs)
	if err != nil {
		return 0, err
	}
	id := s.nextID
	s.nextID++
	s.components[id] = &compEntry{comp: c, pinNodes: make(map[string]netlist.NodeId)}
	s.finalized = false
	return id, nil
}

// Connect joins component c's named pin to the node at coord (spec
// `sim.connect`), validating that the pin exists and is not already bound.
func (s *Simulation) Connect(c ComponentId, pin string, coord Coordinate) error {
	e, ok := s.components[c]
	if !ok {
		return ErrPinMismatch{Component: c, Pin: pin, Reason: "unknown component"}
	}
	if _, already := e.pinNodes[pin]; already {
		return ErrPinMismatch{Component: c, Pin: pin, Reason: "pin already connected"}
	}

	var spec *component.PinSpec
	for _, ps := range e.comp.Pins() {
		if ps.Name == pin {
			spec = &ps
			break
		}
	}
	if spec == nil {
		return ErrPinMismatch{Component: c, Pin: pin, Reason: "no such pin"}
	}

	node := s.nl.Connect(c, coord, spec.Direction, spec.Width)
	e.pinNodes[pin] = node
	s.finalized = false
	return nil
}

// PinNode returns the node a previously connect()ed pin is bound to, for
// callers (loaders, tests) that need to query or drive it directly.
func (s *Simulation) PinNode(c ComponentId, pin string) (NodeId, bool) {
	e, ok := s.components[c]
	if !ok {
		return 0, false
	}
	node, ok := e.pinNodes[pin]
	return node, ok
}

// AddWire joins two coordinates with a wire segment (spec `sim.add_wire`).
func (s *Simulation) AddWire(a, b Coordinate, widthHint signal.Width) {
	s.nl.AddWire(a, b, widthHint)
	s.finalized = false
}

// AddTunnel registers coord as an endpoint of the named tunnel (spec
// `sim.add_tunnel`); every coordinate sharing the name is unified at
// Finalize.
func (s *Simulation) AddTunnel(coord Coordinate, name string, widthHint signal.Width) {
	s.nl.AddTunnel(coord, name, widthHint)
	s.finalized = false
}

// splitterSpecs derives a netlist.SplitterSpec for every registered
// Splitter component from the pins the Builder has connected so far.
func (s *Simulation) splitterSpecs() []netlist.SplitterSpec {
	var specs []netlist.SplitterSpec
	for _, e := range s.components {
		shape, ok := e.comp.(splitterShape)
		if !ok {
			continue
		}
		wideNode, ok := e.pinNodes["Wide"]
		if !ok {
			continue
		}
		names := shape.FanPinNames()
		widths := shape.FanWidths()
		fanNodes := make([]netlist.NodeId, len(names))
		for i, name := range names {
			fanNodes[i] = e.pinNodes[name]
		}

		var bitMap []netlist.FanBit
		for fan, w := range widths {
			for bit := 0; bit < int(w); bit++ {
				bitMap = append(bitMap, netlist.FanBit{Fan: fan, Bit: bit, Connected: true})
			}
		}
		specs = append(specs, netlist.SplitterSpec{WideNode: wideNode, FanNodes: fanNodes, BitMap: bitMap})
	}
	return specs
}

// Finalize triggers connectivity rebuild and (re)registers every component
// with the propagator (spec `sim.finalize`). Calling it again with
// unchanged topology is idempotent (RT-1).
func (s *Simulation) Finalize() []netlist.Diagnostic {
	for _, spec := range s.splitterSpecs() {
		s.nl.AddSplitter(spec)
	}

	diags := s.nl.Build()

	for id, e := range s.components {
		s.prop.RegisterComponent(id, e.comp, e.pinNodes)
	}
	s.prop.Finalize()
	s.finalized = true
	return diags
}

// Finalized reports whether Finalize has run since the last topology
// change.
func (s *Simulation) Finalized() bool { return s.finalized }

// Reset implements spec `sim.reset()` / PI-5.
func (s *Simulation) Reset() { s.prop.Reset() }

// Step implements spec `sim.step()`.
func (s *Simulation) Step() StepResult { return s.prop.Step() }

// Run implements spec `sim.run()`.
func (s *Simulation) Run() RunResult {
	res := s.prop.Run()
	return RunResult{State: res.State, Stats: s.snapshotStats()}
}

// Tick implements spec `sim.tick()`: advance to the next clock edge.
func (s *Simulation) Tick() StepResult { return s.prop.Tick() }

// TickN implements spec `sim.tick_n(k)`.
func (s *Simulation) TickN(k int) StepResult { return s.prop.TickN(k) }

// resolveSettable finds the Out-direction pin of a SettableOutput
// component, returning its bound node.
func (s *Simulation) resolveSettable(id ComponentId) (settable, NodeId, bool) {
	e, ok := s.components[id]
	if !ok {
		return nil, 0, false
	}
	st, ok := e.comp.(settable)
	if !ok {
		return nil, 0, false
	}
	for _, spec := range e.comp.Pins() {
		if spec.Direction == netlist.In {
			continue
		}
		if node, bound := e.pinNodes[spec.Name]; bound {
			return st, node, true
		}
	}
	return nil, 0, false
}

// SetInput implements spec `sim.set_input(pin_component, signal)`: forces a
// boundary Pin's driven value and schedules the resulting SignalChange at
// current_time+0.
func (s *Simulation) SetInput(pinComponent ComponentId, sig signal.Signal) error {
	st, node, ok := s.resolveSettable(pinComponent)
	if !ok {
		return fmt.Errorf("sim: component %d has no settable output pin", pinComponent)
	}
	st.SetValue(sig)
	s.nl.SetDriver(pinComponent, node, sig, signal.Strong)
	return s.prop.ScheduleSignalChange(node, pinComponent)
}

// PulseClock manually enqueues edge on node at current_time+0, for driving a
// sequential component's clock pin without a self-scheduling Clock
// component (e.g. a loader stepping an externally-generated clock by hand).
func (s *Simulation) PulseClock(node NodeId, edge timeevent.Edge) error {
	return s.prop.ScheduleClockEdge(node, edge)
}

// ScheduleComponentUpdate forces id to be re-evaluated at current_time+0,
// for loaders/tests that need to seed a component's output after directly
// manipulating netlist state (e.g. seeding a feedback loop's committed
// value before the first Evaluate).
func (s *Simulation) ScheduleComponentUpdate(id ComponentId) error {
	return s.prop.ScheduleComponentUpdate(id)
}

// NodeSignal implements spec `sim.node_signal(node)`.
func (s *Simulation) NodeSignal(node NodeId) signal.Signal {
	return s.nl.Node(node).Signal()
}

// ComponentState implements spec `sim.component_state(c)`: callers may only
// read the returned value, never mutate it from outside a registered
// Observer (spec §4.6).
func (s *Simulation) ComponentState(id ComponentId) (component.Component, bool) {
	e, ok := s.components[id]
	if !ok {
		return nil, false
	}
	return e.comp, true
}

// CurrentTime implements spec `sim.current_time()`.
func (s *Simulation) CurrentTime() timeevent.Timestamp {
	return s.prop.Queue().CurrentTime()
}

func (s *Simulation) snapshotStats() Stats {
	s.stats.State = s.prop.State()
	s.stats.CurrentTime = s.CurrentTime()
	s.stats.EventsProcessed = s.prop.EventsProcessedThisRun()
	return s.stats
}

// Stats implements spec `sim.stats()`.
func (s *Simulation) Stats() Stats { return s.snapshotStats() }

// RegisterObserver implements spec `sim.register_observer`.
func (s *Simulation) RegisterObserver(o trace.Observer) trace.ObserverId {
	return s.prop.Observers().Register(o)
}

// UnregisterObserver implements spec `sim.unregister_observer`.
func (s *Simulation) UnregisterObserver(id trace.ObserverId) {
	s.prop.Observers().Unregister(id)
}

// statsObserver keeps Stats.OscillationTrips current by watching the
// propagator's own SimEvent stream through the same Observer fan-out
// external callers use, rather than threading a private counter through
// the propagator.
type statsObserver struct {
	stats *Stats
}

func (o *statsObserver) OnSignalChange(netlist.NodeId, int, signal.Value, signal.Value, timeevent.Timestamp) {
}
func (o *statsObserver) OnClockEdge(netlist.NodeId, timeevent.Edge, timeevent.Timestamp) {}
func (o *statsObserver) OnStepComplete(timeevent.Timestamp, uint64)                      {}

func (o *statsObserver) OnSimulationEvent(evt trace.SimEvent) {
	switch evt {
	case trace.Oscillation:
		o.stats.OscillationTrips++
	case trace.ResetEvent:
		o.stats.OscillationTrips = 0
	}
}

var _ trace.Observer = (*statsObserver)(nil)
