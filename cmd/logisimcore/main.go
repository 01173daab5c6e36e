// Command logisimcore is a headless runner that builds and drives the six
// reference circuits from spec §8.4 (S-1 through S-6) through the sim
// package's Builder/Run/Query surface, printing a go-pretty table of the
// final node signals and a SimulationStats summary for each (mirroring the
// teacher's cmd-level demo binaries that exercise a config.DeviceBuilder
// end to end rather than just unit-testing it in isolation).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/sim"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
	"github.com/sarchlab/logisimcore/trace"
)

// namedNode labels a node for the final-state report printed after a
// scenario runs.
type namedNode struct {
	label string
	node  sim.NodeId
}

type scenario struct {
	name string
	run  func(*sim.Simulation) []namedNode
}

func main() {
	sink, err := trace.NewSQLSink("logisimcore_trace.sqlite")
	if err != nil {
		fmt.Fprintln(os.Stderr, "trace sink unavailable, continuing without persistence:", err)
		sink = nil
	} else {
		atexit.Register(func() {
			if err := sink.Close(); err != nil {
				fmt.Fprintln(os.Stderr, "closing trace sink:", err)
			}
		})
	}

	scenarios := []scenario{
		{"S-1 two-input AND gate", scenarioAnd},
		{"S-2 self-loop oscillator", scenarioOscillator},
		{"S-3 D flip-flop", scenarioDFlipFlop},
		{"S-4 4-bit counter", scenarioCounter},
		{"S-5 splitter roundtrip", scenarioSplitter},
		{"S-6 ROM lookup", scenarioRom},
	}

	for _, sc := range scenarios {
		fmt.Printf("\n== %s ==\n", sc.name)

		s := sim.NewSimulation(sim.NewBuilder().WithMaxEventsPerInstant(100).Build())
		if sink != nil {
			s.RegisterObserver(sink)
		}

		nodes := sc.run(s)
		printNodes(s, nodes)

		stats := s.Stats()
		if err := stats.SampleHost(100 * time.Millisecond); err != nil {
			fmt.Fprintln(os.Stderr, "host sample unavailable:", err)
		}
		stats.Render(os.Stdout)
	}

	atexit.Exit(0)
}

func printNodes(s *sim.Simulation, nodes []namedNode) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Signal", "Value"})
	for _, n := range nodes {
		t.AppendRow(table.Row{n.label, renderSignal(s.NodeSignal(n.node))})
	}
	t.Render()
}

// renderSignal prints a Signal MSB-first, the way the teacher's `.circ`
// dumps order multi-bit buses.
func renderSignal(sig signal.Signal) string {
	out := make([]byte, sig.Width())
	for i := 0; i < int(sig.Width()); i++ {
		out[len(out)-1-i] = sig.Bit(i).String()[0]
	}
	return string(out)
}

// fanPinName mirrors stdlib's unexported splitter fan-pin naming (Fan0 ..
// Fan9, then FanA, FanB, ...) so this demo can address a Splitter's fan pins by name without
// reaching into the package's internals.
func fanPinName(i int) string {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < len(letters) {
		return "Fan" + string(letters[i])
	}
	return "FanX"
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// scenarioAnd is spec S-1: Y settles to A AND B as each input Pin is driven
// in turn.
func scenarioAnd(s *sim.Simulation) []namedNode {
	pinA, err := s.AddComponent("Pin", component.AttrMap{"Width": "1", "Direction": "Out"})
	must(err)
	pinB, err := s.AddComponent("Pin", component.AttrMap{"Width": "1", "Direction": "Out"})
	must(err)
	and, err := s.AddComponent("And", component.AttrMap{"Width": "1"})
	must(err)

	must(s.Connect(pinA, "Value", netlist.Coordinate{X: 0, Y: 0}))
	must(s.Connect(and, "In0", netlist.Coordinate{X: 0, Y: 0}))
	must(s.Connect(pinB, "Value", netlist.Coordinate{X: 0, Y: 1}))
	must(s.Connect(and, "In1", netlist.Coordinate{X: 0, Y: 1}))
	must(s.Connect(and, "Out", netlist.Coordinate{X: 1, Y: 0}))

	if diags := s.Finalize(); len(diags) > 0 {
		panic(fmt.Sprintf("S-1 finalize diagnostics: %v", diags))
	}
	s.Reset()
	s.Run()

	must(s.SetInput(pinA, signal.New(1, signal.Low)))
	must(s.SetInput(pinB, signal.New(1, signal.High)))
	s.Run()

	must(s.SetInput(pinA, signal.New(1, signal.High)))
	s.Run()

	nodeY, _ := s.PinNode(and, "Out")
	return []namedNode{{"Y (A AND B)", nodeY}}
}

// scenarioOscillator is spec S-2: a Not gate feeding its own input never
// settles; Run must report Oscillating once the per-instant budget trips.
func scenarioOscillator(s *sim.Simulation) []namedNode {
	not, err := s.AddComponent("Not", component.AttrMap{"Width": "1", "Delay": "0"})
	must(err)

	coord := netlist.Coordinate{X: 0, Y: 0}
	must(s.Connect(not, "In", coord))
	must(s.Connect(not, "Out", coord))

	if diags := s.Finalize(); len(diags) > 0 {
		panic(fmt.Sprintf("S-2 finalize diagnostics: %v", diags))
	}
	s.Reset()

	node, _ := s.PinNode(not, "In")
	tid := s.Netlist().ThreadForBit(node, 0)
	s.Netlist().ApplyThreadValue(tid, signal.Low)
	must(s.ScheduleComponentUpdate(not))

	res := s.Run()
	fmt.Printf("final state: %v\n", res.State)

	return []namedNode{{"loop node", node}}
}

// scenarioDFlipFlop is spec S-3: D is driven High then sampled on a rising
// Clk edge, driven Low then sampled on the next rising edge.
func scenarioDFlipFlop(s *sim.Simulation) []namedNode {
	dff, err := s.AddComponent("DFlipFlop", component.AttrMap{"Width": "1"})
	must(err)
	pinD, err := s.AddComponent("Pin", component.AttrMap{"Width": "1", "Direction": "Out"})
	must(err)

	must(s.Connect(pinD, "Value", netlist.Coordinate{X: 0, Y: 0}))
	must(s.Connect(dff, "D", netlist.Coordinate{X: 0, Y: 0}))
	must(s.Connect(dff, "Clk", netlist.Coordinate{X: 0, Y: 1}))
	must(s.Connect(dff, "Q", netlist.Coordinate{X: 1, Y: 0}))
	must(s.Connect(dff, "Qn", netlist.Coordinate{X: 1, Y: 1}))

	if diags := s.Finalize(); len(diags) > 0 {
		panic(fmt.Sprintf("S-3 finalize diagnostics: %v", diags))
	}
	s.Reset()
	s.Run()

	clkNode, _ := s.PinNode(dff, "Clk")

	must(s.SetInput(pinD, signal.New(1, signal.High)))
	s.Run()
	must(s.PulseClock(clkNode, timeevent.Rising))
	s.Tick()
	must(s.PulseClock(clkNode, timeevent.Falling))
	s.Tick()

	must(s.SetInput(pinD, signal.New(1, signal.Low)))
	s.Run()
	must(s.PulseClock(clkNode, timeevent.Rising))
	s.Tick()
	s.Run()

	qNode, _ := s.PinNode(dff, "Q")
	qnNode, _ := s.PinNode(dff, "Qn")
	return []namedNode{{"Q", qNode}, {"Qn", qnNode}}
}

// scenarioCounter is spec S-4: a 4-bit Counter driven through 17 rising
// clock edges, expecting the sequence 1..15, 0, 1.
func scenarioCounter(s *sim.Simulation) []namedNode {
	counter, err := s.AddComponent("Counter", component.AttrMap{"Width": "4"})
	must(err)

	must(s.Connect(counter, "Clk", netlist.Coordinate{X: 0, Y: 0}))
	must(s.Connect(counter, "Q", netlist.Coordinate{X: 1, Y: 0}))

	if diags := s.Finalize(); len(diags) > 0 {
		panic(fmt.Sprintf("S-4 finalize diagnostics: %v", diags))
	}
	s.Reset()
	s.Run()

	clkNode, _ := s.PinNode(counter, "Clk")
	qNode, _ := s.PinNode(counter, "Q")

	for i := 0; i < 17; i++ {
		must(s.PulseClock(clkNode, timeevent.Rising))
		s.Tick()
		must(s.PulseClock(clkNode, timeevent.Falling))
		s.Tick()
		s.Run()

		v, _ := s.NodeSignal(qNode).ToBits()
		fmt.Printf("edge %2d -> Q = %d\n", i+1, v)
	}

	return []namedNode{{"Q", qNode}}
}

// scenarioSplitter is spec S-5: an 8-bit value passes through one Splitter's
// fan-out and back through a second Splitter's fan-in, verifying the
// Thread-sharing roundtrip preserves every bit.
func scenarioSplitter(s *sim.Simulation) []namedNode {
	pinIn, err := s.AddComponent("Pin", component.AttrMap{"Width": "8", "Direction": "Out"})
	must(err)
	split1, err := s.AddComponent("Splitter", component.AttrMap{"Width": "8"})
	must(err)
	split2, err := s.AddComponent("Splitter", component.AttrMap{"Width": "8"})
	must(err)

	wideIn := netlist.Coordinate{X: 0, Y: 0}
	must(s.Connect(pinIn, "Value", wideIn))
	must(s.Connect(split1, "Wide", wideIn))

	for i := 0; i < 8; i++ {
		fan := netlist.Coordinate{X: 1, Y: i}
		name := fanPinName(i)
		must(s.Connect(split1, name, fan))
		must(s.Connect(split2, name, fan))
	}

	wideOut := netlist.Coordinate{X: 2, Y: 0}
	must(s.Connect(split2, "Wide", wideOut))

	if diags := s.Finalize(); len(diags) > 0 {
		panic(fmt.Sprintf("S-5 finalize diagnostics: %v", diags))
	}
	s.Reset()
	s.Run()

	must(s.SetInput(pinIn, signal.FromBits(0xA5, 8)))
	s.Run()

	outNode, _ := s.PinNode(split2, "Wide")
	return []namedNode{{"roundtrip output", outNode}}
}

// scenarioRom is spec S-6: a Rom preloaded with "4*FF 10 20" is read at
// addresses 0 through 6.
func scenarioRom(s *sim.Simulation) []namedNode {
	rom, err := s.AddComponent("Rom", component.AttrMap{
		"AddrWidth": "4",
		"Width":     "8",
		"Contents":  "addr/data: 4 8\n4*FF 10 20",
	})
	must(err)
	pinAddr, err := s.AddComponent("Pin", component.AttrMap{"Width": "4", "Direction": "Out"})
	must(err)

	must(s.Connect(pinAddr, "Value", netlist.Coordinate{X: 0, Y: 0}))
	must(s.Connect(rom, "Address", netlist.Coordinate{X: 0, Y: 0}))
	must(s.Connect(rom, "Data", netlist.Coordinate{X: 1, Y: 0}))

	if diags := s.Finalize(); len(diags) > 0 {
		panic(fmt.Sprintf("S-6 finalize diagnostics: %v", diags))
	}
	s.Reset()
	s.Run()

	dataNode, _ := s.PinNode(rom, "Data")

	for addr := uint64(0); addr <= 6; addr++ {
		must(s.SetInput(pinAddr, signal.FromBits(addr, 4)))
		s.Run()
		v, _ := s.NodeSignal(dataNode).ToBits()
		fmt.Printf("addr %d -> data 0x%02X\n", addr, v)
	}

	return []namedNode{{"Data", dataNode}}
}
