package stdlib_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/logisimcore/component"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

var _ = Describe("Sequential elements", func() {
	var r *component.Registry

	BeforeEach(func() { r = newRegistry() })

	It("DLatch tracks D transparently while Enable is High", func() {
		c, _ := r.New("DLatch", component.AttrMap{"Width": "1"})
		out := c.Evaluate(map[string]signal.Signal{
			"D": signal.FromBits(1, 1), "Enable": signal.FromBits(1, 1),
		}, 0)
		Expect(out.Outputs["Q"].Signal.Bit(0)).To(Equal(signal.High))
		Expect(out.Outputs["Qn"].Signal.Bit(0)).To(Equal(signal.Low))
	})

	It("DLatch holds its value once Enable drops", func() {
		c, _ := r.New("DLatch", component.AttrMap{"Width": "1"})
		c.Evaluate(map[string]signal.Signal{"D": signal.FromBits(1, 1), "Enable": signal.FromBits(1, 1)}, 0)
		out := c.Evaluate(map[string]signal.Signal{"D": signal.FromBits(0, 1), "Enable": signal.FromBits(0, 1)}, 1)
		Expect(out.Outputs["Q"].Signal.Bit(0)).To(Equal(signal.High))
	})

	It("DFlipFlop only captures D on a rising edge (scenario S-3)", func() {
		c, _ := r.New("DFlipFlop", component.AttrMap{"Width": "1"})
		c.Reset()

		out := c.OnClockEdge(timeevent.Falling, map[string]signal.Signal{"D": signal.FromBits(1, 1)}, 0)
		Expect(out.Outputs["Q"].Signal.Bit(0)).To(Equal(signal.Low))

		out = c.OnClockEdge(timeevent.Rising, map[string]signal.Signal{"D": signal.FromBits(1, 1)}, 1)
		Expect(out.Outputs["Q"].Signal.Bit(0)).To(Equal(signal.High))
	})

	It("Register captures a multi-bit D on rising Clk", func() {
		c, _ := r.New("Register", component.AttrMap{"Width": "8"})
		out := c.OnClockEdge(timeevent.Rising, map[string]signal.Signal{"D": signal.FromBits(0xAB, 8)}, 0)
		v, ok := out.Outputs["Q"].Signal.ToBits()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0xAB)))
	})

	It("Counter increments modulo 2^width on each rising edge (scenario S-4)", func() {
		c, _ := r.New("Counter", component.AttrMap{"Width": "2"})
		for i := 0; i < 4; i++ {
			c.OnClockEdge(timeevent.Rising, nil, timeevent.Timestamp(i))
		}
		out := c.Evaluate(nil, 4)
		v, _ := out.Outputs["Q"].Signal.ToBits()
		Expect(v).To(Equal(uint64(0)))
	})

	It("Counter does not advance on a falling edge", func() {
		c, _ := r.New("Counter", component.AttrMap{"Width": "4"})
		c.OnClockEdge(timeevent.Falling, nil, 0)
		out := c.Evaluate(nil, 0)
		v, _ := out.Outputs["Q"].Signal.ToBits()
		Expect(v).To(Equal(uint64(0)))
	})

	It("Reset restores Register state to all-Low (PI-5)", func() {
		c, _ := r.New("Register", component.AttrMap{"Width": "4"})
		c.OnClockEdge(timeevent.Rising, map[string]signal.Signal{"D": signal.FromBits(0xF, 4)}, 0)
		c.Reset()
		out := c.Evaluate(nil, 0)
		v, ok := out.Outputs["Q"].Signal.ToBits()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0)))
	})
})
