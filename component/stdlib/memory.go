package stdlib

import (
	"strconv"
	"strings"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// parseContents decodes the `.circ` memory-contents format (spec §6.2):
// a header line "addr/data: <addr_w> <data_w>" followed by whitespace
// separated tokens, each either a bare hex value or "N*hex" meaning N
// repetitions, filling cells from address 0 upward. Missing cells default
// to 0. A token whose hex value does not parse is skipped, and a repeat
// count that does not parse counts as 1, rather than raising an error,
// matching the component contract's no-panic rule (spec §7).
func parseContents(text string, addrWidth, dataWidth signal.Width) []signal.Signal {
	size := 1 << uint(addrWidth)
	cells := make([]signal.Signal, size)
	for i := range cells {
		cells[i] = signal.New(dataWidth, signal.Low)
	}

	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	if len(lines) < 2 {
		return cells
	}

	addr := 0
	for _, tok := range strings.Fields(lines[1]) {
		count := 1
		hexPart := tok
		if star := strings.IndexByte(tok, '*'); star >= 0 {
			if n, err := strconv.Atoi(tok[:star]); err == nil {
				count = n
			}
			hexPart = tok[star+1:]
		}
		v, err := strconv.ParseUint(hexPart, 16, 64)
		if err != nil {
			continue
		}
		for i := 0; i < count && addr < size; i++ {
			cells[addr] = signal.FromBits(v, dataWidth)
			addr++
		}
	}
	return cells
}

// rom is a load-once read-only memory (spec §4.5 "Rom"): combinational
// Address -> Data, contents fixed from construction and never mutated.
type rom struct {
	addrWidth signal.Width
	dataWidth signal.Width
	delay     uint64
	cells     []signal.Signal
}

func (m *rom) Kind() string { return "Rom" }

func (m *rom) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "Address", Direction: netlist.In, Width: m.addrWidth},
		{Name: "Data", Direction: netlist.Out, Width: m.dataWidth},
	}
}

func (m *rom) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	addr, ok := cellIndex(inputs["Address"], len(m.cells))
	data := signal.New(m.dataWidth, signal.Unknown)
	if ok {
		data = m.cells[addr]
	}
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{"Data": {Signal: data, Strength: signal.Strong}},
	}
}

func (m *rom) OnClockEdge(timeevent.Edge, map[string]signal.Signal, timeevent.Timestamp) component.EvalResult {
	return component.EvalResult{}
}

func (m *rom) Reset() {}

func (m *rom) PropagationDelay() uint64 { return m.delay }

// cellIndex converts an address signal to an in-range slice index, treating
// any Unknown/Error bit as out of range (reads as Unknown data) rather than
// panicking.
func cellIndex(addr signal.Signal, size int) (int, bool) {
	if addr.Width() == 0 {
		return 0, false
	}
	v, ok := addr.ToBits()
	if !ok || int(v) >= size {
		return 0, false
	}
	return int(v), true
}

// ram is a clocked read/write memory (spec §4.5 "Ram"): combinational read
// through Data, synchronous write of DataIn into Address on a rising Clk
// edge while Write is High.
type ram struct {
	addrWidth signal.Width
	dataWidth signal.Width
	delay     uint64
	cells     []signal.Signal
	initial   []signal.Signal
}

func (m *ram) Kind() string     { return "Ram" }
func (m *ram) ClockPin() string { return "Clk" }

func (m *ram) Pins() []component.PinSpec {
	return []component.PinSpec{
		{Name: "Address", Direction: netlist.In, Width: m.addrWidth},
		{Name: "DataIn", Direction: netlist.In, Width: m.dataWidth},
		{Name: "Write", Direction: netlist.In, Width: 1},
		{Name: "Clk", Direction: netlist.In, Width: 1},
		{Name: "Data", Direction: netlist.Out, Width: m.dataWidth},
	}
}

func (m *ram) Evaluate(inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	return m.readOutputs(inputs["Address"])
}

func (m *ram) readOutputs(addr signal.Signal) component.EvalResult {
	idx, ok := cellIndex(addr, len(m.cells))
	data := signal.New(m.dataWidth, signal.Unknown)
	if ok {
		data = m.cells[idx]
	}
	return component.EvalResult{
		Outputs: map[string]component.OutputDrive{"Data": {Signal: data, Strength: signal.Strong}},
	}
}

func (m *ram) OnClockEdge(edge timeevent.Edge, inputs map[string]signal.Signal, _ timeevent.Timestamp) component.EvalResult {
	if edge == timeevent.Rising {
		write := inputs["Write"]
		if write.Width() > 0 && write.Bit(0) == signal.High {
			if idx, ok := cellIndex(inputs["Address"], len(m.cells)); ok {
				if in, ok := inputs["DataIn"]; ok {
					m.cells[idx] = in
				}
			}
		}
	}
	return m.readOutputs(inputs["Address"])
}

func (m *ram) Reset() {
	copy(m.cells, m.initial)
}

func (m *ram) PropagationDelay() uint64 { return m.delay }

// RegisterMemory adds Rom/Ram to r (spec §4.5 "Memory").
func RegisterMemory(r *component.Registry) {
	r.Register("Rom", func(attrs component.AttrMap) (component.Component, error) {
		addrW := signal.Width(attrs.Int("AddrWidth", 8))
		dataW := signal.Width(attrs.Width(8))
		contents, _ := attrs.Get("Contents")
		return &rom{
			addrWidth: addrW, dataWidth: dataW, delay: uint64(attrs.Int("Delay", 1)),
			cells: parseContents(contents, addrW, dataW),
		}, nil
	})
	r.Register("Ram", func(attrs component.AttrMap) (component.Component, error) {
		addrW := signal.Width(attrs.Int("AddrWidth", 8))
		dataW := signal.Width(attrs.Width(8))
		contents, _ := attrs.Get("Contents")
		initial := parseContents(contents, addrW, dataW)
		cells := make([]signal.Signal, len(initial))
		copy(cells, initial)
		return &ram{
			addrWidth: addrW, dataWidth: dataW, delay: uint64(attrs.Int("Delay", 1)),
			cells: cells, initial: initial,
		}, nil
	})
}
