package propagator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/component/stdlib"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/propagator"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

func newStdlibRegistry() *component.Registry {
	r := component.NewRegistry()
	stdlib.RegisterGates(r)
	stdlib.RegisterSequential(r)
	stdlib.RegisterWiring(r)
	stdlib.RegisterMemory(r)
	return r
}

// driveExternal seeds node with a one-shot strong driver from an id the
// propagator never registers a component for, then schedules the
// SignalChange that propagates it — the same primitive sim.SetInput uses.
func driveExternal(nl *netlist.Netlist, p *propagator.Propagator, extID netlist.ComponentId, node netlist.NodeId, v signal.Value) {
	nl.SetDriver(extID, node, signal.New(1, v), signal.Strong)
	Expect(p.ScheduleSignalChange(node, extID)).To(Succeed())
}

var _ = Describe("Propagator end-to-end (scenario S-1, 2-input AND gate)", func() {
	It("settles Y to A AND B after each input change", func() {
		reg := newStdlibRegistry()
		nl := netlist.NewNetlist()

		and, err := reg.New("And", component.AttrMap{"Width": "1"})
		Expect(err).NotTo(HaveOccurred())

		const gateID netlist.ComponentId = 1
		nodeA := nl.Connect(gateID, netlist.Coordinate{X: 0, Y: 0}, netlist.In, 1)
		nodeB := nl.Connect(gateID, netlist.Coordinate{X: 0, Y: 1}, netlist.In, 1)
		nodeY := nl.Connect(gateID, netlist.Coordinate{X: 1, Y: 0}, netlist.Out, 1)
		Expect(nl.Build()).To(BeEmpty())

		p := propagator.New(nl, propagator.DefaultConfig())
		p.RegisterComponent(gateID, and, map[string]netlist.NodeId{"In0": nodeA, "In1": nodeB, "Out": nodeY})
		p.Finalize()
		p.Reset()
		p.Run()

		driveExternal(nl, p, 100, nodeA, signal.Low)
		driveExternal(nl, p, 101, nodeB, signal.High)
		res := p.Run()
		Expect(res.State).To(Equal(propagator.Settled))
		Expect(nl.Node(nodeY).Signal().Bit(0)).To(Equal(signal.Low))

		driveExternal(nl, p, 100, nodeA, signal.High)
		res = p.Run()
		Expect(res.State).To(Equal(propagator.Settled))
		Expect(nl.Node(nodeY).Signal().Bit(0)).To(Equal(signal.High))
	})
})

var _ = Describe("Propagator end-to-end (scenario S-2, oscillator)", func() {
	It("trips the oscillation guard on a zero-delay inverter feedback loop", func() {
		reg := newStdlibRegistry()
		nl := netlist.NewNetlist()

		not, err := reg.New("Not", component.AttrMap{"Width": "1", "Delay": "0"})
		Expect(err).NotTo(HaveOccurred())

		const gateID netlist.ComponentId = 1
		coord := netlist.Coordinate{X: 0, Y: 0}
		// Both the In and Out pin of this single inverter are registered at
		// the same coordinate, so Connect binds both to one self-feeding
		// Node: the gate reads the very value it drives.
		nodeIn := nl.Connect(gateID, coord, netlist.In, 1)
		nodeOut := nl.Connect(gateID, coord, netlist.Out, 1)
		Expect(nodeIn).To(Equal(nodeOut))
		Expect(nl.Build()).To(BeEmpty())

		cfg := propagator.DefaultConfig()
		cfg.MaxEventsPerInstant = 100
		p := propagator.New(nl, cfg)
		p.RegisterComponent(gateID, not, map[string]netlist.NodeId{"In": nodeIn, "Out": nodeOut})
		p.Finalize()
		p.Reset()

		tid := nl.ThreadForBit(nodeIn, 0)
		nl.ApplyThreadValue(tid, signal.Low)
		Expect(p.ScheduleComponentUpdate(gateID)).To(Succeed())

		res := p.Run()
		Expect(res.State).To(Equal(propagator.Oscillating))
		Expect(res.EventsProcessed).To(BeNumerically(">=", 100))
	})
})

var _ = Describe("Propagator end-to-end (scenario S-3, DFlipFlop edge behavior)", func() {
	It("only captures D on a rising clock edge, via ClockEdge dispatch", func() {
		reg := newStdlibRegistry()
		nl := netlist.NewNetlist()

		dff, err := reg.New("DFlipFlop", component.AttrMap{"Width": "1"})
		Expect(err).NotTo(HaveOccurred())

		const ffID netlist.ComponentId = 1
		nodeD := nl.Connect(ffID, netlist.Coordinate{X: 0, Y: 0}, netlist.In, 1)
		nodeClk := nl.Connect(ffID, netlist.Coordinate{X: 0, Y: 1}, netlist.In, 1)
		nodeQ := nl.Connect(ffID, netlist.Coordinate{X: 1, Y: 0}, netlist.Out, 1)
		nodeQn := nl.Connect(ffID, netlist.Coordinate{X: 1, Y: 1}, netlist.Out, 1)
		Expect(nl.Build()).To(BeEmpty())

		p := propagator.New(nl, propagator.DefaultConfig())
		p.RegisterComponent(ffID, dff, map[string]netlist.NodeId{
			"D": nodeD, "Clk": nodeClk, "Q": nodeQ, "Qn": nodeQn,
		})
		p.Finalize()
		p.Reset()
		p.Run()

		driveExternal(nl, p, 100, nodeD, signal.High)
		p.Run()
		Expect(nl.Node(nodeQ).Signal().Bit(0)).To(Equal(signal.Low))

		Expect(p.ScheduleClockEdge(nodeClk, timeevent.Rising)).To(Succeed())
		res := p.Run()
		Expect(res.State).To(Equal(propagator.Settled))
		Expect(nl.Node(nodeQ).Signal().Bit(0)).To(Equal(signal.High))
		Expect(nl.Node(nodeQn).Signal().Bit(0)).To(Equal(signal.Low))

		driveExternal(nl, p, 100, nodeD, signal.Low)
		p.Run()
		Expect(p.ScheduleClockEdge(nodeClk, timeevent.Falling)).To(Succeed())
		p.Run()
		Expect(p.ScheduleClockEdge(nodeClk, timeevent.Rising)).To(Succeed())
		p.Run()
		Expect(nl.Node(nodeQ).Signal().Bit(0)).To(Equal(signal.Low))
	})
})

var _ = Describe("Reset (PI-5)", func() {
	It("zeros current_time, drains the queue, and restores component state", func() {
		reg := newStdlibRegistry()
		nl := netlist.NewNetlist()

		counter, err := reg.New("Counter", component.AttrMap{"Width": "4"})
		Expect(err).NotTo(HaveOccurred())

		const cID netlist.ComponentId = 1
		nodeClk := nl.Connect(cID, netlist.Coordinate{X: 0, Y: 0}, netlist.In, 1)
		nodeQ := nl.Connect(cID, netlist.Coordinate{X: 1, Y: 0}, netlist.Out, 4)
		Expect(nl.Build()).To(BeEmpty())

		p := propagator.New(nl, propagator.DefaultConfig())
		p.RegisterComponent(cID, counter, map[string]netlist.NodeId{"Clk": nodeClk, "Q": nodeQ})
		p.Finalize()
		p.Reset()
		p.Run()
		Expect(p.ScheduleClockEdge(nodeClk, timeevent.Rising)).To(Succeed())
		p.Run()
		Expect(p.ScheduleClockEdge(nodeClk, timeevent.Falling)).To(Succeed())
		p.Run()
		Expect(p.ScheduleClockEdge(nodeClk, timeevent.Rising)).To(Succeed())
		p.Run()
		Expect(p.Queue().CurrentTime()).NotTo(Equal(timeevent.Timestamp(0)))

		p.Reset()
		Expect(p.Queue().CurrentTime()).To(Equal(timeevent.Timestamp(0)))
		Expect(p.Queue().Len()).To(BeNumerically(">", 0)) // Reset re-seeds initial ComponentUpdate/ClockEdge
		p.Run()
		v, ok := nl.Node(nodeQ).Signal().ToBits()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0)))
	})
})
