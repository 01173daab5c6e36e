package stdlib

import (
	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// pin is the Builder's external boundary component (spec §4.5 "Pin"): an
// Out-direction pin acts as an injection point for sim.SetInput, an
// In-direction pin is a read-only external observation point.
type pin struct {
	width signal.Width
	dir   netlist.Direction
	delay uint64
	value signal.Signal
}

func (p *pin) Kind() string { return "Pin" }

func (p *pin) Pins() []component.PinSpec {
	return []component.PinSpec{{Name: "Value", Direction: p.dir, Width: p.width}}
}

func (p *pin) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	if p.dir == netlist.In {
		if v, ok := inputs["Value"]; ok {
			p.value = v
		}
		return component.EvalResult{}
	}
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{"Value": {Signal: p.value, Strength: signal.Strong}},
	}
}

func (p *pin) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (p *pin) Reset() { p.value = signal.New(p.width, signal.Unknown) }

func (p *pin) PropagationDelay() uint64 { return p.delay }

// SetValue overrides the pin's held output value; sim.SetInput calls this on
// Out-direction pins before scheduling the resulting signal change.
func (p *pin) SetValue(v signal.Signal) { p.value = v }

// Value returns the pin's last observed input, for an In-direction pin used
// as a query point.
func (p *pin) Value() signal.Signal { return p.value }

// SettableOutput is implemented by components whose output can be forced
// externally (the Builder's "Pin"). sim.SetInput type-asserts to its own
// interface of the same shape rather than to this one.
type SettableOutput interface {
	component.Component
	SetValue(signal.Signal)
}

// constantDriver implements Constant, Ground and Power: a fixed value driven
// at every evaluation (spec §4.5 "Wiring").
type constantDriver struct {
	kind  string
	width signal.Width
	value signal.Signal
}

func (c *constantDriver) Kind() string { return c.kind }

func (c *constantDriver) Pins() []component.PinSpec {
	return []component.PinSpec{{Name: "Y", Direction: netlist.Out, Width: c.width}}
}

func (c *constantDriver) Evaluate(map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{"Y": {Signal: c.value, Strength: signal.Strong}},
	}
}

func (c *constantDriver) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (c *constantDriver) Reset() {}

func (c *constantDriver) PropagationDelay() uint64 { return 0 }

// clock is a self-scheduling square-wave generator (spec §4.7). The
// propagator schedules its first Rising ClockEdge at t=0, delivers every
// edge back through OnClockEdge like any Clocked component, and reschedules
// the next edge after NextDelay.
type clock struct {
	width     signal.Width
	period    uint64
	highTicks uint64
	phase     timeevent.Edge
}

func (c *clock) Kind() string     { return "Clock" }
func (c *clock) ClockPin() string { return "Y" }

func (c *clock) Pins() []component.PinSpec {
	return []component.PinSpec{{Name: "Y", Direction: netlist.Out, Width: c.width}}
}

func (c *clock) Evaluate(map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return c.outputs()
}

func (c *clock) outputs() component.EvalResult {
	level := signal.Low
	if c.phase == timeevent.Rising {
		level = signal.High
	}
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{"Y": {Signal: signal.New(c.width, level), Strength: signal.Strong}},
	}
}

func (c *clock) OnClockEdge(edge timeevent.Edge, _ map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	c.phase = edge
	return c.outputs()
}

func (c *clock) Reset() { c.phase = timeevent.Falling }

func (c *clock) PropagationDelay() uint64 { return 0 }

// NextDelay returns the tick count until the opposite edge, given the edge
// just delivered (spec §4.7's period/duty-cycle split).
func (c *clock) NextDelay(last timeevent.Edge) uint64 {
	if last == timeevent.Rising {
		return c.highTicks
	}
	return c.period - c.highTicks
}

var _ component.ClockSource = (*clock)(nil)

// tunnel is a passthrough marker component (spec §4.5 "Tunnel"). Tunnel
// connectivity itself is established at the netlist layer by name-matching
// coordinates (spec §4.3); this component exists so the Builder can still
// add_component("Tunnel", ...) uniformly with every other kind.
type tunnel struct {
	width signal.Width
}

func (t *tunnel) Kind() string { return "Tunnel" }

func (t *tunnel) Pins() []component.PinSpec {
	return []component.PinSpec{{Name: "A", Direction: netlist.InOut, Width: t.width}}
}

func (t *tunnel) Evaluate(map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (t *tunnel) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (t *tunnel) Reset() {}

func (t *tunnel) PropagationDelay() uint64 { return 0 }

// probe is a read-only observation marker (spec §4.5 "Probe"); it never
// drives its pin, only captures the last value seen for query/trace use.
type probe struct {
	width signal.Width
	value signal.Signal
	label string
}

func (p *probe) Kind() string { return "Probe" }

func (p *probe) Pins() []component.PinSpec {
	return []component.PinSpec{{Name: "A", Direction: netlist.In, Width: p.width}}
}

func (p *probe) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	if v, ok := inputs["A"]; ok {
		p.value = v
	}
	return component.EvalResult{}
}

func (p *probe) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (p *probe) Reset() { p.value = signal.New(p.width, signal.Unknown) }

func (p *probe) PropagationDelay() uint64 { return 0 }

// Value returns the probe's last captured signal, for query API use.
func (p *probe) Value() signal.Signal { return p.value }

// Label returns the probe's configured display name (the `.circ` "Label"
// attribute, spec §6.2), or "" if unset.
func (p *probe) Label() string { return p.label }

// splitterComponent is the Builder-facing wrapper around a netlist splitter
// (spec §4.5 "Splitter"). The bit-routing itself lives in netlist.Splitter,
// built from this component's attributes at sim.Finalize time (spec §4.3);
// the component has no Evaluate-time behavior of its own — it never drives
// or reads a value directly, since every bit it touches is already unified
// into a shared Thread with its fan-out wires.
type splitterComponent struct {
	wideWidth signal.Width
	fanWidths []signal.Width
}

func (s *splitterComponent) Kind() string { return "Splitter" }

func (s *splitterComponent) Pins() []component.PinSpec {
	pins := make([]component.PinSpec, 0, len(s.fanWidths)+1)
	pins = append(pins, component.PinSpec{Name: "Wide", Direction: netlist.InOut, Width: s.wideWidth})
	for i, w := range s.fanWidths {
		pins = append(pins, component.PinSpec{Name: fanPinName(i), Direction: netlist.InOut, Width: w})
	}
	return pins
}

func (s *splitterComponent) Evaluate(map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (s *splitterComponent) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (s *splitterComponent) Reset() {}

func (s *splitterComponent) PropagationDelay() uint64 { return 0 }

// FanWidths exposes each fan-out pin's width, for the Builder to derive a
// netlist.SplitterSpec.BitMap without re-parsing attributes.
func (s *splitterComponent) FanWidths() []signal.Width { return s.fanWidths }

// FanPinNames returns each fan-out pin's name, in order, so the Builder can
// resolve pinNodes into a netlist.SplitterSpec without re-deriving this
// component's pin-naming scheme.
func (s *splitterComponent) FanPinNames() []string {
	names := make([]string, len(s.fanWidths))
	for i := range names {
		names[i] = fanPinName(i)
	}
	return names
}

func fanPinName(i int) string {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < len(letters) {
		return "Fan" + string(letters[i])
	}
	return "FanX"
}

// RegisterWiring adds Pin/Constant/Ground/Power/Clock/Tunnel/Splitter/Probe
// to r (spec §4.5 "Wiring").
func RegisterWiring(r *component.Registry) {
	r.Register("Pin", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(1))
		dir := netlist.Out
		if v, ok := attrs.Get("Direction"); ok && v == "In" {
			dir = netlist.In
		}
		return &pin{width: w, dir: dir, delay: uint64(attrs.Int("Delay", 1)), value: signal.New(w, signal.Unknown)}, nil
	})
	r.Register("Constant", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(1))
		return &constantDriver{kind: "Constant", width: w, value: signal.FromBits(uint64(attrs.Int("Value", 0)), w)}, nil
	})
	r.Register("Ground", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(1))
		return &constantDriver{kind: "Ground", width: w, value: signal.New(w, signal.Low)}, nil
	})
	r.Register("Power", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(1))
		return &constantDriver{kind: "Power", width: w, value: signal.New(w, signal.High)}, nil
	})
	r.Register("Clock", func(attrs component.AttrMap) (component.Component, error) {
		period := uint64(attrs.Int("Period", 2))
		if period < 2 {
			period = 2
		}
		dutyPercent := attrs.Int("Duty", 50)
		high := (period * uint64(dutyPercent)) / 100
		if high == 0 {
			high = 1
		}
		if high >= period {
			high = period - 1
		}
		return &clock{width: 1, period: period, highTicks: high, phase: timeevent.Falling}, nil
	})
	r.Register("Tunnel", func(attrs component.AttrMap) (component.Component, error) {
		return &tunnel{width: signal.Width(attrs.Width(1))}, nil
	})
	r.Register("Probe", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(1))
		label, _ := attrs.Get("Label")
		return &probe{width: w, value: signal.New(w, signal.Unknown), label: label}, nil
	})
	r.Register("Splitter", func(attrs component.AttrMap) (component.Component, error) {
		wide := signal.Width(attrs.Width(2))
		fanOut := attrs.Int("FanOut", int(wide))
		if fanOut < 1 {
			fanOut = 1
		}
		fanWidths := make([]signal.Width, fanOut)
		base := int(wide) / fanOut
		rem := int(wide) % fanOut
		for i := range fanWidths {
			w := base
			if i < rem {
				w++
			}
			if w < 1 {
				w = 1
			}
			fanWidths[i] = signal.Width(w)
		}
		return &splitterComponent{wideWidth: wide, fanWidths: fanWidths}, nil
	})
}
