package sim_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/sim"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
	"github.com/sarchlab/logisimcore/trace"
)

var _ = Describe("Builder configuration", func() {
	It("chains WithX calls the way config.DeviceBuilder does", func() {
		cfg := sim.NewBuilder().
			WithMaxEventsPerInstant(42).
			WithMaxEventsPerRun(1000).
			WithTimeout(5 * time.Second).
			Build()

		Expect(cfg.MaxEventsPerInstant).To(Equal(uint64(42)))
		Expect(cfg.MaxEventsPerRun).To(Equal(uint64(1000)))
		Expect(cfg.RunTimeout).To(Equal(5 * time.Second))
	})

	It("defaults to the documented oscillation guard", func() {
		cfg := sim.NewBuilder().Build()
		Expect(cfg.MaxEventsPerInstant).To(Equal(uint64(10_000)))
		Expect(cfg.MaxEventsPerRun).To(Equal(uint64(0)))
	})
})

var _ = Describe("Simulation end-to-end (scenario S-1, 2-input AND gate)", func() {
	It("settles Y to A AND B through the Builder/Run/Query surface", func() {
		s := sim.NewSimulation(sim.NewBuilder().Build())

		pinA, err := s.AddComponent("Pin", component.AttrMap{"Width": "1", "Direction": "Out"})
		Expect(err).NotTo(HaveOccurred())
		pinB, err := s.AddComponent("Pin", component.AttrMap{"Width": "1", "Direction": "Out"})
		Expect(err).NotTo(HaveOccurred())
		and, err := s.AddComponent("And", component.AttrMap{"Width": "1"})
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Connect(pinA, "Value", netlist.Coordinate{X: 0, Y: 0})).To(Succeed())
		Expect(s.Connect(and, "In0", netlist.Coordinate{X: 0, Y: 0})).To(Succeed())
		Expect(s.Connect(pinB, "Value", netlist.Coordinate{X: 0, Y: 1})).To(Succeed())
		Expect(s.Connect(and, "In1", netlist.Coordinate{X: 0, Y: 1})).To(Succeed())
		Expect(s.Connect(and, "Out", netlist.Coordinate{X: 1, Y: 0})).To(Succeed())

		Expect(s.Finalize()).To(BeEmpty())
		Expect(s.Finalized()).To(BeTrue())

		s.Reset()
		s.Run()

		nodeY, ok := s.PinNode(and, "Out")
		Expect(ok).To(BeTrue())

		Expect(s.SetInput(pinA, signal.New(1, signal.Low))).To(Succeed())
		Expect(s.SetInput(pinB, signal.New(1, signal.High))).To(Succeed())
		res := s.Run()
		Expect(res.State).To(Equal(sim.Settled))
		Expect(s.NodeSignal(nodeY).Bit(0)).To(Equal(signal.Low))

		Expect(s.SetInput(pinA, signal.New(1, signal.High))).To(Succeed())
		res = s.Run()
		Expect(res.State).To(Equal(sim.Settled))
		Expect(s.NodeSignal(nodeY).Bit(0)).To(Equal(signal.High))
	})

	It("rejects connecting an unknown pin name (PinMismatch)", func() {
		s := sim.NewSimulation(sim.NewBuilder().Build())
		and, err := s.AddComponent("And", component.AttrMap{"Width": "1"})
		Expect(err).NotTo(HaveOccurred())

		err = s.Connect(and, "NoSuchPin", netlist.Coordinate{X: 0, Y: 0})
		Expect(err).To(HaveOccurred())
		var mismatch sim.ErrPinMismatch
		Expect(err).To(BeAssignableToTypeOf(mismatch))
	})

	It("rejects an unknown component kind (UnknownKind)", func() {
		s := sim.NewSimulation(sim.NewBuilder().Build())
		_, err := s.AddComponent("DoesNotExist", component.AttrMap{})
		Expect(err).To(HaveOccurred())
		Expect(err).To(BeAssignableToTypeOf(component.ErrUnknownKind{}))
	})
})

var _ = Describe("Simulation end-to-end (scenario S-2, oscillator)", func() {
	It("trips the oscillation guard through sim.Run and records it in Stats", func() {
		cfg := sim.NewBuilder().WithMaxEventsPerInstant(100).Build()
		s := sim.NewSimulation(cfg)

		not, err := s.AddComponent("Not", component.AttrMap{"Width": "1", "Delay": "0"})
		Expect(err).NotTo(HaveOccurred())

		coord := netlist.Coordinate{X: 0, Y: 0}
		Expect(s.Connect(not, "In", coord)).To(Succeed())
		Expect(s.Connect(not, "Out", coord)).To(Succeed())
		Expect(s.Finalize()).To(BeEmpty())

		s.Reset()

		node, ok := s.PinNode(not, "In")
		Expect(ok).To(BeTrue())

		tid := s.Netlist().ThreadForBit(node, 0)
		s.Netlist().ApplyThreadValue(tid, signal.Low)
		Expect(s.ScheduleComponentUpdate(not)).To(Succeed())

		res := s.Run()
		Expect(res.State).To(Equal(sim.Oscillating))
		Expect(res.Stats.EventsProcessed).To(BeNumerically(">=", 100))
		Expect(res.Stats.OscillationTrips).To(Equal(uint64(1)))

		s.Reset()
		Expect(s.Stats().OscillationTrips).To(Equal(uint64(0)))
	})
})

var _ = Describe("Simulation Reset (PI-5)", func() {
	It("zeros current_time, drains the queue, and restores component state", func() {
		s := sim.NewSimulation(sim.NewBuilder().Build())
		counter, err := s.AddComponent("Counter", component.AttrMap{"Width": "4"})
		Expect(err).NotTo(HaveOccurred())

		clk := netlist.Coordinate{X: 0, Y: 0}
		q := netlist.Coordinate{X: 1, Y: 0}
		Expect(s.Connect(counter, "Clk", clk)).To(Succeed())
		Expect(s.Connect(counter, "Q", q)).To(Succeed())
		Expect(s.Finalize()).To(BeEmpty())

		s.Reset()
		s.Run()

		clkNode, ok := s.PinNode(counter, "Clk")
		Expect(ok).To(BeTrue())
		qNode, ok := s.PinNode(counter, "Q")
		Expect(ok).To(BeTrue())

		Expect(s.PulseClock(clkNode, timeevent.Rising)).To(Succeed())
		s.Run()
		Expect(s.PulseClock(clkNode, timeevent.Falling)).To(Succeed())
		s.Run()
		Expect(s.PulseClock(clkNode, timeevent.Rising)).To(Succeed())
		s.Run()
		Expect(s.CurrentTime()).NotTo(Equal(timeevent.Timestamp(0)))

		s.Reset()
		Expect(s.CurrentTime()).To(Equal(timeevent.Timestamp(0)))
		s.Run()

		v, ok := s.NodeSignal(qNode).ToBits()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0)))
	})
})

type recordingObserver struct {
	changes int
}

func (r *recordingObserver) OnSignalChange(netlist.NodeId, int, signal.Value, signal.Value, timeevent.Timestamp) {
	r.changes++
}
func (r *recordingObserver) OnClockEdge(netlist.NodeId, timeevent.Edge, timeevent.Timestamp) {}
func (r *recordingObserver) OnStepComplete(timeevent.Timestamp, uint64)                      {}
func (r *recordingObserver) OnSimulationEvent(trace.SimEvent)                                {}

var _ = Describe("Observation API (RT-3)", func() {
	It("never calls an observer after UnregisterObserver", func() {
		s := sim.NewSimulation(sim.NewBuilder().Build())
		pinA, err := s.AddComponent("Pin", component.AttrMap{"Width": "1", "Direction": "Out"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Connect(pinA, "Value", netlist.Coordinate{X: 0, Y: 0})).To(Succeed())
		Expect(s.Finalize()).To(BeEmpty())
		s.Reset()
		s.Run()

		obs := &recordingObserver{}
		id := s.RegisterObserver(obs)
		Expect(s.SetInput(pinA, signal.New(1, signal.High))).To(Succeed())
		s.Run()
		Expect(obs.changes).To(BeNumerically(">", 0))

		s.UnregisterObserver(id)
		before := obs.changes
		Expect(s.SetInput(pinA, signal.New(1, signal.Low))).To(Succeed())
		s.Run()
		Expect(obs.changes).To(Equal(before))
	})
})

var _ = Describe("Stats", func() {
	It("renders a summary table", func() {
		s := sim.NewSimulation(sim.NewBuilder().Build())
		s.Reset()
		s.Run()

		var buf bytes.Buffer
		s.Stats().Render(&buf)
		Expect(buf.String()).To(ContainSubstring("State"))
		Expect(buf.String()).To(ContainSubstring("EventsProcessed"))
	})

	It("attaches a host sample and renders it alongside the simulation counters", func() {
		s := sim.NewSimulation(sim.NewBuilder().Build())
		s.Reset()
		s.Run()

		stats := s.Stats()
		Expect(stats.SampleHost(0)).To(Succeed())
		Expect(stats.Host).NotTo(BeNil())

		var buf bytes.Buffer
		stats.Render(&buf)
		Expect(buf.String()).To(ContainSubstring("HostCPU%"))
		Expect(buf.String()).To(ContainSubstring("HostMem%"))
	})
})
