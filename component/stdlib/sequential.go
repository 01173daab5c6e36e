package stdlib

import (
	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// dLatch is a level-sensitive latch: while Enable is High, Q tracks D
// transparently; otherwise Q holds its last value (spec §4.5 "DLatch").
type dLatch struct {
	width signal.Width
	delay uint64
	state signal.Signal
}

func (g *dLatch) Kind() string { return "DLatch" }

func (g *dLatch) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "D", Direction: netlist.In, Width: g.width},
		{Name: "Enable", Direction: netlist.In, Width: 1},
		{Name: "Q", Direction: netlist.Out, Width: g.width},
		{Name: "Qn", Direction: netlist.Out, Width: g.width},
	}
}

func (g *dLatch) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	enable := inputs["Enable"]
	if enable.Width() > 0 && enable.Bit(0) == signal.High {
		if d, ok := inputs["D"]; ok {
			g.state = d
		}
	}
	return g.outputs()
}

func (g *dLatch) outputs() component.EvalResult {
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{
			"Q":  {Signal: g.state, Strength: signal.Strong},
			"Qn": {Signal: signal.MapUnary(g.state, signal.Not), Strength: signal.Strong},
		},
	}
}

func (g *dLatch) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (g *dLatch) Reset() { g.state = signal.New(g.width, signal.Low) }

func (g *dLatch) PropagationDelay() uint64 { return g.delay }

// dFlipFlop is an edge-triggered flip-flop: Q only changes on a rising
// clock edge, capturing D at that instant (spec §4.5, scenario S-3).
type dFlipFlop struct {
	width signal.Width
	delay uint64
	state signal.Signal
}

func (g *dFlipFlop) Kind() string     { return "DFlipFlop" }
func (g *dFlipFlop) ClockPin() string { return "Clk" }

func (g *dFlipFlop) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "D", Direction: netlist.In, Width: g.width},
		{Name: "Clk", Direction: netlist.In, Width: 1},
		{Name: "Q", Direction: netlist.Out, Width: g.width},
		{Name: "Qn", Direction: netlist.Out, Width: g.width},
	}
}

func (g *dFlipFlop) Evaluate(map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return g.outputs()
}

func (g *dFlipFlop) outputs() component.EvalResult {
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{
			"Q":  {Signal: g.state, Strength: signal.Strong},
			"Qn": {Signal: signal.MapUnary(g.state, signal.Not), Strength: signal.Strong},
		},
	}
}

func (g *dFlipFlop) OnClockEdge(edge timeevent.Edge, inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	if edge == timeevent.Rising {
		if d, ok := inputs["D"]; ok {
			g.state = d
		}
	}
	return g.outputs()
}

func (g *dFlipFlop) Reset() { g.state = signal.New(g.width, signal.Low) }

func (g *dFlipFlop) PropagationDelay() uint64 { return g.delay }

// register is a multi-bit edge-triggered flip-flop bank: Q captures D on
// every rising Clk edge (spec §4.5 "Register").
type register struct {
	width signal.Width
	delay uint64
	state signal.Signal
}

func (g *register) Kind() string     { return "Register" }
func (g *register) ClockPin() string { return "Clk" }

func (g *register) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "D", Direction: netlist.In, Width: g.width},
		{Name: "Clk", Direction: netlist.In, Width: 1},
		{Name: "Q", Direction: netlist.Out, Width: g.width},
	}
}

func (g *register) Evaluate(map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return g.outputs()
}

func (g *register) outputs() component.EvalResult {
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{"Q": {Signal: g.state, Strength: signal.Strong}},
	}
}

func (g *register) OnClockEdge(edge timeevent.Edge, inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	if edge == timeevent.Rising {
		if d, ok := inputs["D"]; ok {
			g.state = d
		}
	}
	return g.outputs()
}

func (g *register) Reset() { g.state = signal.New(g.width, signal.Low) }

func (g *register) PropagationDelay() uint64 { return g.delay }

// counter increments Q by one, modulo 2^width, on every rising Clk edge
// (spec §4.5 "Counter", scenario S-4).
type counter struct {
	width signal.Width
	delay uint64
	value uint64
}

func (g *counter) Kind() string     { return "Counter" }
func (g *counter) ClockPin() string { return "Clk" }

func (g *counter) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "Clk", Direction: netlist.In, Width: 1},
		{Name: "Q", Direction: netlist.Out, Width: g.width},
	}
}

func (g *counter) Evaluate(map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return g.outputs()
}

func (g *counter) outputs() component.EvalResult {
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{
			"Q": {Signal: signal.FromBits(g.value, g.width), Strength: signal.Strong},
		},
	}
}

func (g *counter) OnClockEdge(edge timeevent.Edge, _ map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	if edge == timeevent.Rising {
		mask := uint64(1)<<uint(g.width) - 1
		g.value = (g.value + 1) & mask
	}
	return g.outputs()
}

func (g *counter) Reset() { g.value = 0 }

func (g *counter) PropagationDelay() uint64 { return g.delay }

// RegisterSequential adds DLatch/DFlipFlop/Register/Counter to r (spec
// §4.5 "Sequential").
func RegisterSequential(r *component.Registry) {
	r.Register("DLatch", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(1))
		return &dLatch{width: w, delay: uint64(attrs.Int("Delay", 1)), state: signal.New(w, signal.Low)}, nil
	})
	r.Register("DFlipFlop", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(1))
		return &dFlipFlop{width: w, delay: uint64(attrs.Int("Delay", 1)), state: signal.New(w, signal.Low)}, nil
	})
	r.Register("Register", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(8))
		return &register{width: w, delay: uint64(attrs.Int("Delay", 1)), state: signal.New(w, signal.Low)}, nil
	})
	r.Register("Counter", func(attrs component.AttrMap) (component.Component, error) {
		w := signal.Width(attrs.Width(4))
		return &counter{width: w, delay: uint64(attrs.Int("Delay", 1))}, nil
	})
}
