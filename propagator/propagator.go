// Package propagator implements the dispatch loop that is the heart of the
// kernel (spec §4.4): given a timeevent.Queue, a netlist.Netlist and a set
// of registered components, it drains events one simulated instant at a
// time, applies the oscillation/timeout/budget guards, and reports the
// resulting simulation state.
package propagator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
	"github.com/sarchlab/logisimcore/trace"
)

// LevelTrace mirrors netlist.LevelTrace: a custom slog level above Info for
// dispatch-layer tracing, following the teacher's core/util.go idiom. The
// propagator logs at this level when the oscillation guard trips; individual
// event dispatches are not logged.
const LevelTrace = slog.LevelInfo + 1

// Trace logs a dispatch-layer debug line at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// State is the per-simulation state machine (spec §4.4).
type State uint8

const (
	Ready State = iota
	Running
	Settled
	Oscillating
	Timeout
	Overflow
	BudgetExceeded
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Settled:
		return "Settled"
	case Oscillating:
		return "Oscillating"
	case Timeout:
		return "Timeout"
	case Overflow:
		return "Overflow"
	case BudgetExceeded:
		return "BudgetExceeded"
	default:
		return "?"
	}
}

// terminal reports whether s requires an explicit Reset to leave (spec
// §4.4's "Terminal error states require reset() to leave").
func (s State) terminal() bool {
	switch s {
	case Oscillating, Timeout, Overflow, BudgetExceeded:
		return true
	default:
		return false
	}
}

// Config bounds one Propagator's execution (spec §6.1 SimConfig).
type Config struct {
	MaxEventsPerInstant uint64
	MaxEventsPerRun     uint64 // 0 = unlimited
	RunTimeout          time.Duration // 0 = none
}

// DefaultConfig matches spec §6.1's documented defaults.
func DefaultConfig() Config {
	return Config{MaxEventsPerInstant: 10_000}
}

// entry is everything the propagator needs to drive one component: the
// component itself and the NodeId each of its pins is bound to.
type entry struct {
	comp      component.Component
	pinNodes  map[string]netlist.NodeId
	pinDirs   map[string]netlist.Direction
	clockNode netlist.NodeId
	isClocked bool
}

// StepResult is returned by Step (spec §6.1).
type StepResult struct {
	State           State
	EventsProcessed uint64
	CurrentTime     timeevent.Timestamp
}

// RunResult is returned by Run (spec §6.1).
type RunResult struct {
	State           State
	EventsProcessed uint64
}

// Propagator owns the queue, netlist and component arena for one
// Simulation's lifetime (spec §5 "owned exclusively by the Simulation
// value" — Propagator is embedded in sim.Simulation, never shared).
type Propagator struct {
	nl    *netlist.Netlist
	queue *timeevent.Queue
	obs   *trace.Registry
	cfg   Config

	components map[netlist.ComponentId]*entry
	order      []netlist.ComponentId // ascending ComponentId, fixed once built

	lastApplied map[netlist.ComponentId]map[string]signal.Signal

	state          State
	eventsThisRun  uint64
	toggleCounts   map[netlist.NodeId]uint64
	sawClockEdge   bool
}

// New builds an empty Propagator over nl, with its own event queue and
// trace registry.
func New(nl *netlist.Netlist, cfg Config) *Propagator {
	return &Propagator{
		nl:          nl,
		queue:       timeevent.NewQueue(),
		obs:         &trace.Registry{},
		cfg:         cfg,
		components:  make(map[netlist.ComponentId]*entry),
		lastApplied: make(map[netlist.ComponentId]map[string]signal.Signal),
		state:       Ready,
	}
}

// Observers exposes the trace registry for sim.RegisterObserver/Unregister.
func (p *Propagator) Observers() *trace.Registry { return p.obs }

// Queue exposes the underlying event queue for query use (CurrentTime,
// peeking, etc.) without letting callers schedule directly.
func (p *Propagator) Queue() *timeevent.Queue { return p.queue }

// State reports the propagator's current state-machine value.
func (p *Propagator) State() State { return p.state }

// RegisterComponent adds a built component to the arena, bound to pinNodes
// (a map from each connected PinSpec name to the NodeId sim.Connect joined
// it to). A pin absent from pinNodes is left out of the component's input
// snapshot and its output drive is ignored. Call Finalize once every
// component is registered.
func (p *Propagator) RegisterComponent(id netlist.ComponentId, c component.Component, pinNodes map[string]netlist.NodeId) {
	dirs := make(map[string]netlist.Direction, len(c.Pins()))
	for _, spec := range c.Pins() {
		dirs[spec.Name] = spec.Direction
	}

	e := &entry{comp: c, pinNodes: pinNodes, pinDirs: dirs}
	if clocked, ok := c.(component.Clocked); ok {
		if node, ok := pinNodes[clocked.ClockPin()]; ok {
			e.isClocked = true
			e.clockNode = node
		}
	}

	p.components[id] = e
	p.lastApplied[id] = make(map[string]signal.Signal)
}

// Finalize fixes the deterministic ComponentId iteration order (spec §4.4
// Determinism "(b) deterministic iteration order ... fixed by ComponentId
// order"). Call after every RegisterComponent, before the first Reset.
func (p *Propagator) Finalize() {
	p.order = p.order[:0]
	for id := range p.components {
		p.order = append(p.order, id)
	}
	sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
}

// clockSourcesAt returns every registered ClockSource whose own clock pin
// is bound to node, in ComponentId order.
func (p *Propagator) clockSourcesAt(node netlist.NodeId) []netlist.ComponentId {
	var out []netlist.ComponentId
	for _, id := range p.order {
		e := p.components[id]
		if e.isClocked && e.clockNode == node {
			if _, ok := e.comp.(component.ClockSource); ok {
				out = append(out, id)
			}
		}
	}
	return out
}

// clockedAt returns every registered Clocked component (including
// ClockSources reacting to their own edge) whose clock pin is bound to
// node, in ComponentId order.
func (p *Propagator) clockedAt(node netlist.NodeId) []netlist.ComponentId {
	var out []netlist.ComponentId
	for _, id := range p.order {
		e := p.components[id]
		if e.isClocked && e.clockNode == node {
			out = append(out, id)
		}
	}
	return out
}

// Reset implements spec §4.4's Reset dispatch: clear driver tables, reset
// every component's state, zero current_time, drain the queue, schedule an
// initial ComponentUpdate for every component and a first Rising ClockEdge
// for every ClockSource, all at t=0 (PI-5).
func (p *Propagator) Reset() {
	p.nl.ResetDrivers()
	p.queue.Reset()
	p.state = Ready
	p.eventsThisRun = 0

	for _, id := range p.order {
		e := p.components[id]
		e.comp.Reset()
		p.lastApplied[id] = make(map[string]signal.Signal)
	}

	for _, id := range p.order {
		_, _ = p.queue.Schedule(0, timeevent.ComponentUpdate{Component: timeevent.ComponentRef(id)})
	}

	scheduledSource := make(map[netlist.NodeId]bool)
	for _, id := range p.order {
		e := p.components[id]
		if !e.isClocked {
			continue
		}
		if _, ok := e.comp.(component.ClockSource); ok && !scheduledSource[e.clockNode] {
			scheduledSource[e.clockNode] = true
			_, _ = p.queue.Schedule(0, timeevent.ClockEdge{Node: timeevent.NodeRef(e.clockNode), Edge: timeevent.Rising})
		}
	}

	p.obs.SimulationEvent(trace.ResetEvent)
}

// snapshotInputs reads the current committed signal of every In/InOut pin
// of e, for passing into Evaluate/OnClockEdge.
func (p *Propagator) snapshotInputs(e *entry) map[string]signal.Signal {
	inputs := make(map[string]signal.Signal, len(e.pinNodes))
	for name, dir := range e.pinDirs {
		if dir == netlist.Out {
			continue
		}
		node, ok := e.pinNodes[name]
		if !ok {
			continue
		}
		inputs[name] = p.nl.Node(node).Signal()
	}
	return inputs
}

// applyOutputs writes every output drive into the netlist and schedules a
// SignalChange for any pin whose driven value actually changed since this
// component last applied one (spec §4.4 ComponentUpdate dispatch).
func (p *Propagator) applyOutputs(id netlist.ComponentId, e *entry, result component.EvalResult) {
	delay := e.comp.PropagationDelay()
	if result.InternalDelay != nil {
		delay = *result.InternalDelay
	}

	for name, drive := range result.Outputs {
		node, ok := e.pinNodes[name]
		if !ok {
			continue
		}
		p.nl.SetDriver(id, node, drive.Signal, drive.Strength)

		last, seen := p.lastApplied[id][name]
		if seen && signal.Equal(last, drive.Signal) {
			continue
		}
		p.lastApplied[id][name] = drive.Signal
		if err := p.schedule(timeevent.Timestamp(delay), timeevent.SignalChange{
			Node: timeevent.NodeRef(node), Src: timeevent.ComponentRef(id),
		}); err != nil {
			return
		}
	}
}

func (p *Propagator) schedule(delay timeevent.Timestamp, kind timeevent.Kind) error {
	_, err := p.queue.Schedule(delay, kind)
	if err != nil {
		p.state = Overflow
	}
	return err
}

// dispatch handles exactly one popped event (spec §4.4 Dispatch).
func (p *Propagator) dispatch(ev timeevent.Event) {
	switch k := ev.Kind.(type) {
	case timeevent.SignalChange:
		p.dispatchSignalChange(netlist.NodeId(k.Node))
	case timeevent.ComponentUpdate:
		p.dispatchComponentUpdate(netlist.ComponentId(k.Component))
	case timeevent.ClockEdge:
		p.dispatchClockEdge(netlist.NodeId(k.Node), k.Edge)
	case timeevent.Reset:
		p.Reset()
	}
}

func (p *Propagator) dispatchSignalChange(node netlist.NodeId) {
	threads := p.nl.ThreadsForNode(node)

	readers := make(map[netlist.ComponentId]bool)
	for _, t := range threads {
		value := p.nl.ResolveThread(t)
		changes := p.nl.ApplyThreadValue(t, value)
		for _, c := range changes {
			p.toggleCounts[c.Node]++
			p.obs.SignalChange(c.Node, c.Bit, c.Old, c.New, p.queue.CurrentTime())
			for _, cid := range p.nl.ComponentsReadingNode(c.Node) {
				readers[cid] = true
			}
		}
	}

	ids := make([]netlist.ComponentId, 0, len(readers))
	for cid := range readers {
		ids = append(ids, cid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, cid := range ids {
		_ = p.schedule(0, timeevent.ComponentUpdate{Component: timeevent.ComponentRef(cid)})
	}
}

func (p *Propagator) dispatchComponentUpdate(id netlist.ComponentId) {
	e, ok := p.components[id]
	if !ok {
		return
	}
	result := e.comp.Evaluate(p.snapshotInputs(e), p.queue.CurrentTime())
	p.applyOutputs(id, e, result)
}

func (p *Propagator) dispatchClockEdge(node netlist.NodeId, edge timeevent.Edge) {
	p.sawClockEdge = true
	p.obs.ClockEdge(node, edge, p.queue.CurrentTime())
	for _, id := range p.clockedAt(node) {
		e := p.components[id]
		clocked := e.comp.(component.Clocked)
		result := clocked.OnClockEdge(edge, p.snapshotInputs(e), p.queue.CurrentTime())
		p.applyOutputs(id, e, result)
	}

	for _, id := range p.clockSourcesAt(node) {
		src := p.components[id].comp.(component.ClockSource)
		next := timeevent.Rising
		if edge == timeevent.Rising {
			next = timeevent.Falling
		}
		_ = p.schedule(timeevent.Timestamp(src.NextDelay(edge)), timeevent.ClockEdge{
			Node: timeevent.NodeRef(node), Edge: next,
		})
	}
}

// Step exhausts every event queued at the current logical instant (spec
// §4.4 "one step"), honoring the oscillation guard. It does not advance
// past the current instant even if more events remain at a later
// timestamp.
func (p *Propagator) Step() StepResult {
	if p.state.terminal() {
		return StepResult{State: p.state, CurrentTime: p.queue.CurrentTime()}
	}
	p.state = Running
	p.toggleCounts = make(map[netlist.NodeId]uint64)
	p.sawClockEdge = false

	instantTime, hasEvents := p.queue.PeekTime()
	if !hasEvents {
		p.state = Settled
		return StepResult{State: p.state, CurrentTime: p.queue.CurrentTime()}
	}

	var processed uint64
	for {
		t, ok := p.queue.PeekTime()
		if !ok || t != instantTime {
			break
		}
		ev, ok := p.queue.Pop()
		if !ok {
			break
		}
		p.dispatch(ev)
		processed++
		p.eventsThisRun++

		if p.state == Overflow {
			break
		}
		if processed > p.cfg.MaxEventsPerInstant {
			p.state = Oscillating
			p.obs.SimulationEvent(trace.Oscillation)
			Trace("propagator: oscillation guard tripped", "node_count", len(p.toggleCounts), "events", processed)
			break
		}
	}

	if p.state == Running {
		if _, ok := p.queue.PeekTime(); !ok {
			p.state = Settled
		}
	}

	p.obs.StepComplete(p.queue.CurrentTime(), processed)
	return StepResult{State: p.state, EventsProcessed: processed, CurrentTime: p.queue.CurrentTime()}
}

// Run repeats Step until the queue drains, a guard trips, or the
// configured wall-clock timeout / event budget is exceeded (spec §4.4
// "run").
func (p *Propagator) Run() RunResult {
	p.obs.SimulationEvent(trace.Started)
	start := time.Now()
	var total uint64

	for {
		if p.cfg.RunTimeout > 0 && time.Since(start) > p.cfg.RunTimeout {
			p.state = Timeout
			p.obs.SimulationEvent(trace.Timeout)
			break
		}
		if p.cfg.MaxEventsPerRun > 0 && total > p.cfg.MaxEventsPerRun {
			p.state = BudgetExceeded
			break
		}

		res := p.Step()
		total += res.EventsProcessed

		if res.State != Running {
			break
		}
		if _, ok := p.queue.PeekTime(); !ok {
			break
		}
	}

	p.obs.SimulationEvent(trace.Stopped)
	return RunResult{State: p.state, EventsProcessed: total}
}

// Tick advances the propagator instant by instant up to and including the
// one delivering the next ClockEdge, and returns once that instant is
// exhausted (spec §4.7 `sim.tick()`). Zero-delay consequences of the edge
// settle within that instant; output changes it schedules after a nonzero
// propagation delay are not processed and stay queued for the next
// Step, Run or Tick.
func (p *Propagator) Tick() StepResult {
	if p.state.terminal() {
		return StepResult{State: p.state, CurrentTime: p.queue.CurrentTime()}
	}

	for {
		if _, ok := p.queue.PeekTime(); !ok {
			p.state = Settled
			return StepResult{State: p.state, CurrentTime: p.queue.CurrentTime()}
		}

		res := p.Step()
		if res.State != Running && res.State != Settled {
			return res
		}
		if p.sawClockEdge {
			return res
		}
		if res.State == Settled {
			return res
		}
	}
}

// TickN repeats Tick k times.
func (p *Propagator) TickN(k int) StepResult {
	var res StepResult
	for i := 0; i < k; i++ {
		res = p.Tick()
		if res.State != Running && res.State != Settled {
			break
		}
	}
	return res
}

// ScheduleSignalChange lets sim.SetInput inject an externally-driven value
// change (spec `sim.set_input`): the caller has already called SetDriver on
// the netlist; this just enqueues the SignalChange that propagates it.
func (p *Propagator) ScheduleSignalChange(node netlist.NodeId, src netlist.ComponentId) error {
	return p.schedule(0, timeevent.SignalChange{Node: timeevent.NodeRef(node), Src: timeevent.ComponentRef(src)})
}

// EventsProcessedThisRun exposes the cumulative counter for sim.Stats.
func (p *Propagator) EventsProcessedThisRun() uint64 { return p.eventsThisRun }

// ScheduleComponentUpdate forces id to be re-evaluated at current_time+0,
// the same primitive Reset uses to seed every component's initial
// evaluation (spec §4.3 step 4 "every component is scheduled for initial
// evaluation at t=0").
func (p *Propagator) ScheduleComponentUpdate(id netlist.ComponentId) error {
	return p.schedule(0, timeevent.ComponentUpdate{Component: timeevent.ComponentRef(id)})
}

// Netlist exposes the underlying netlist for query-layer use (sim.NodeSignal
// etc.) without handing out mutation access beyond what Netlist itself
// already guards.
func (p *Propagator) Netlist() *netlist.Netlist { return p.nl }

// ScheduleClockEdge enqueues a manual ClockEdge at current_time+0, for
// driving a Clocked component's pin directly without a self-scheduling
// Clock component (e.g. a test or loader stepping a clock pin by hand).
func (p *Propagator) ScheduleClockEdge(node netlist.NodeId, edge timeevent.Edge) error {
	return p.schedule(0, timeevent.ClockEdge{Node: timeevent.NodeRef(node), Edge: edge})
}
