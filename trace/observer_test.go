package trace_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
	"github.com/sarchlab/logisimcore/trace"
)

type recordingObserver struct {
	changes int
	edges   int
	steps   int
	events  []trace.SimEvent
}

func (r *recordingObserver) OnSignalChange(netlist.NodeId, int, signal.Value, signal.Value, timeevent.Timestamp) {
	r.changes++
}
func (r *recordingObserver) OnClockEdge(netlist.NodeId, timeevent.Edge, timeevent.Timestamp) { r.edges++ }
func (r *recordingObserver) OnStepComplete(timeevent.Timestamp, uint64)                      { r.steps++ }
func (r *recordingObserver) OnSimulationEvent(evt trace.SimEvent)                             { r.events = append(r.events, evt) }

var _ = Describe("Observer registry", func() {
	It("fans out every callback to a registered observer", func() {
		reg := &trace.Registry{}
		obs := &recordingObserver{}
		reg.Register(obs)

		reg.SignalChange(1, 0, signal.Low, signal.High, 0)
		reg.ClockEdge(1, timeevent.Rising, 0)
		reg.StepComplete(0, 1)
		reg.SimulationEvent(trace.Started)

		Expect(obs.changes).To(Equal(1))
		Expect(obs.edges).To(Equal(1))
		Expect(obs.steps).To(Equal(1))
		Expect(obs.events).To(Equal([]trace.SimEvent{trace.Started}))
	})

	It("never calls a deregistered observer again (RT-3 round-trip)", func() {
		reg := &trace.Registry{}
		obs := &recordingObserver{}
		id := reg.Register(obs)
		reg.Unregister(id)

		reg.SignalChange(1, 0, signal.Low, signal.High, 0)
		Expect(obs.changes).To(Equal(0))

		id2 := reg.Register(obs)
		reg.Unregister(id2)
		reg.SignalChange(1, 0, signal.Low, signal.High, 0)
		Expect(obs.changes).To(Equal(0))
	})

	It("keeps two independently registered observers isolated", func() {
		reg := &trace.Registry{}
		a, b := &recordingObserver{}, &recordingObserver{}
		reg.Register(a)
		idB := reg.Register(b)
		reg.Unregister(idB)

		reg.SignalChange(1, 0, signal.Low, signal.High, 0)
		Expect(a.changes).To(Equal(1))
		Expect(b.changes).To(Equal(0))
	})
})

var _ = Describe("TableSink", func() {
	It("renders every buffered change as a table", func() {
		sink := trace.NewTableSink()
		sink.OnSignalChange(3, 0, signal.Low, signal.High, 5)

		var buf bytes.Buffer
		sink.Render(&buf)
		Expect(buf.String()).To(ContainSubstring("NODE"))
		Expect(buf.String()).To(ContainSubstring("5"))
	})
})
