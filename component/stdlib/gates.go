// Package stdlib implements the standard component library required by the
// kernel test suite (spec §4.5): combinational gates, sequential elements,
// wiring primitives and memories.
package stdlib

import (
	"fmt"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// combineFn combines two single-bit values, e.g. signal.And; a gate applies
// it bit-by-bit across its same-width inputs.
type combineFn func(a, b signal.Value) signal.Value

// nInputGate implements And/Or/Xor/Nand/Nor/Xnor: an N-input, width-W gate
// folding its inputs with combine and optionally inverting the result.
type nInputGate struct {
	kind     string
	width    signal.Width
	fanIn    int
	delay    uint64
	combine  combineFn
	identity signal.Value
	invert   bool
}

func (g *nInputGate) Kind() string { return g.kind }

func (g *nInputGate) Pins() []component.PinSpec {
	pins := make([]component.PinSpec, 0, g.fanIn+1)
	for i := 0; i < g.fanIn; i++ {
		pins = append(pins, component.PinSpec{
			Name: fmt.Sprintf("In%d", i), Direction: netlist.In, Width: g.width,
		})
	}
	pins = append(pins, component.PinSpec{Name: "Out", Direction: netlist.Out, Width: g.width})
	return pins
}

func (g *nInputGate) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	acc := signal.New(g.width, g.identity)
	for i := 0; i < g.fanIn; i++ {
		in, ok := inputs[fmt.Sprintf("In%d", i)]
		if !ok {
			in = signal.New(g.width, signal.Unknown)
		}
		acc = signal.Map(acc, in, g.combine)
	}
	if g.invert {
		acc = signal.MapUnary(acc, signal.Not)
	}
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{
			"Out": {Signal: acc, Strength: signal.Strong},
		},
	}
}

func (g *nInputGate) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (g *nInputGate) Reset() {}

func (g *nInputGate) PropagationDelay() uint64 { return g.delay }

func newGateFactory(kind string, combine combineFn, identity signal.Value, invert bool) component.Factory {
	return func(attrs component.AttrMap) (component.Component, error) {
		width := attrs.Width(1)
		fanIn := attrs.Int("FanIn", 2)
		if fanIn < 2 {
			fanIn = 2
		}
		delay := uint64(attrs.Int("Delay", 1))
		return &nInputGate{
			kind: kind, width: signal.Width(width), fanIn: fanIn,
			delay: delay, combine: combine, identity: identity, invert: invert,
		}, nil
	}
}

// unaryGate implements Not and Buffer: one input, one output, no fan-in.
type unaryGate struct {
	kind   string
	width  signal.Width
	delay  uint64
	invert bool
}

func (g *unaryGate) Kind() string { return g.kind }

func (g *unaryGate) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "In", Direction: netlist.In, Width: g.width},
		{Name: "Out", Direction: netlist.Out, Width: g.width},
	}
}

func (g *unaryGate) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	in, ok := inputs["In"]
	if !ok {
		in = signal.New(g.width, signal.Unknown)
	}
	out := in
	if g.invert {
		out = signal.MapUnary(in, signal.Not)
	}
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{"Out": {Signal: out, Strength: signal.Strong}},
	}
}

func (g *unaryGate) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (g *unaryGate) Reset() {}

func (g *unaryGate) PropagationDelay() uint64 { return g.delay }

func newUnaryFactory(kind string, invert bool) component.Factory {
	return func(attrs component.AttrMap) (component.Component, error) {
		width := attrs.Width(1)
		delay := uint64(attrs.Int("Delay", 1))
		return &unaryGate{kind: kind, width: signal.Width(width), delay: delay, invert: invert}, nil
	}
}

// controlledBuffer drives In onto Out at Strong strength while Enable is
// High, and Floating (undriven) otherwise — the tri-state buffer spec
// §4.5 names.
type controlledBuffer struct {
	width signal.Width
	delay uint64
}

func (g *controlledBuffer) Kind() string { return "ControlledBuffer" }

func (g *controlledBuffer) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "In", Direction: netlist.In, Width: g.width},
		{Name: "Enable", Direction: netlist.In, Width: 1},
		{Name: "Out", Direction: netlist.Out, Width: g.width},
	}
}

func (g *controlledBuffer) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	enable := inputs["Enable"]
	in, ok := inputs["In"]
	if !ok {
		in = signal.New(g.width, signal.Unknown)
	}

	if enable.Width() > 0 && enable.Bit(0) == signal.High {
		return component.EvalResult{
			Outputs: map[string]component.OutputDrive{"Out": {Signal: in, Strength: signal.Strong}},
		}
	}
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{
			"Out": {Signal: signal.New(g.width, signal.Unknown), Strength: signal.Floating},
		},
	}
}

func (g *controlledBuffer) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (g *controlledBuffer) Reset() {}

func (g *controlledBuffer) PropagationDelay() uint64 { return g.delay }

// RegisterGates adds And/Or/Not/Nand/Nor/Xor/Xnor/Buffer/ControlledBuffer
// to r (spec §4.5 "Combinational gates").
func RegisterGates(r *component.Registry) {
	r.Register("And", newGateFactory("And", signal.And, signal.High, false))
	r.Register("Or", newGateFactory("Or", signal.Or, signal.Low, false))
	r.Register("Xor", newGateFactory("Xor", signal.Xor, signal.Low, false))
	r.Register("Nand", newGateFactory("Nand", signal.And, signal.High, true))
	r.Register("Nor", newGateFactory("Nor", signal.Or, signal.Low, true))
	r.Register("Xnor", newGateFactory("Xnor", signal.Xor, signal.Low, true))
	r.Register("Not", newUnaryFactory("Not", true))
	r.Register("Buffer", newUnaryFactory("Buffer", false))
	r.Register("ControlledBuffer", func(attrs component.AttrMap) (component.Component, error) {
		width := attrs.Width(1)
		delay := uint64(attrs.Int("Delay", 1))
		return &controlledBuffer{width: signal.Width(width), delay: delay}, nil
	})
}
