package netlist_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
)

var _ = Describe("Netlist bundle/width resolution", func() {
	It("merges two coordinates joined by a wire into one bundle", func() {
		nl := netlist.NewNetlist()
		a := netlist.Coordinate{X: 0, Y: 0}
		b := netlist.Coordinate{X: 1, Y: 0}

		nodeA := nl.Connect(1, a, netlist.Out, 4)
		nodeB := nl.Connect(2, b, netlist.In, 4)
		nl.AddWire(a, b, 0)

		diags := nl.Build()
		Expect(diags).To(BeEmpty())

		Expect(nl.Node(nodeA).Bundle()).To(Equal(nl.Node(nodeB).Bundle()))
		Expect(nl.Node(nodeA).Width()).To(Equal(signal.Width(4)))
	})

	It("flags a width conflict and pins affected nodes to Error", func() {
		nl := netlist.NewNetlist()
		a := netlist.Coordinate{X: 0, Y: 0}
		b := netlist.Coordinate{X: 1, Y: 0}

		nodeA := nl.Connect(1, a, netlist.Out, 4)
		nodeB := nl.Connect(2, b, netlist.In, 8)
		nl.AddWire(a, b, 0)

		diags := nl.Build()
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Kind).To(Equal(netlist.WidthConflict))

		Expect(nl.Node(nodeA).ErrorPinned()).To(BeTrue())
		Expect(nl.Node(nodeB).ErrorPinned()).To(BeTrue())
		for i := 0; i < int(nl.Node(nodeA).Width()); i++ {
			Expect(nl.Node(nodeA).Signal().Bit(i)).To(Equal(signal.Error))
		}
	})

	It("defaults an unconnected bundle to width 1", func() {
		nl := netlist.NewNetlist()
		coord := netlist.Coordinate{X: 5, Y: 5}
		node := nl.Connect(1, coord, netlist.Out, 0)
		_ = nl.Build()
		Expect(nl.Node(node).Width()).To(Equal(signal.Width(1)))
	})

	It("is idempotent across repeated Build calls with unchanged topology", func() {
		nl := netlist.NewNetlist()
		a := netlist.Coordinate{X: 0, Y: 0}
		nl.Connect(1, a, netlist.Out, 2)

		d1 := nl.Build()
		d2 := nl.Build()
		Expect(d1).To(Equal(d2))
	})
})

var _ = Describe("Driver aggregation", func() {
	var (
		nl   *netlist.Netlist
		node netlist.NodeId
	)

	BeforeEach(func() {
		nl = netlist.NewNetlist()
		node = nl.Connect(1, netlist.Coordinate{X: 0, Y: 0}, netlist.Out, 1)
		nl.Connect(2, netlist.Coordinate{X: 0, Y: 0}, netlist.In, 1)
		_ = nl.Build()
	})

	It("resolves Unknown when there are no drivers", func() {
		tid := nl.ThreadForBit(node, 0)
		Expect(nl.ResolveThread(tid)).To(Equal(signal.Unknown))
	})

	It("resolves a single strong driver's value", func() {
		tid := nl.ThreadForBit(node, 0)
		nl.SetDriver(1, node, signal.FromBits(1, 1), signal.Strong)
		Expect(nl.ResolveThread(tid)).To(Equal(signal.High))
	})

	It("lets a strong driver beat a weak one regardless of combine", func() {
		tid := nl.ThreadForBit(node, 0)
		nl.SetDriver(1, node, signal.FromBits(1, 1), signal.Strong)
		nl.SetDriver(2, node, signal.FromBits(0, 1), signal.Weak)
		Expect(nl.ResolveThread(tid)).To(Equal(signal.High))
	})

	It("produces Error when two strong drivers disagree", func() {
		tid := nl.ThreadForBit(node, 0)
		nl.SetDriver(1, node, signal.FromBits(1, 1), signal.Strong)
		nl.SetDriver(2, node, signal.FromBits(0, 1), signal.Strong)
		Expect(nl.ResolveThread(tid)).To(Equal(signal.Error))
	})

	It("agrees when two strong drivers match", func() {
		tid := nl.ThreadForBit(node, 0)
		nl.SetDriver(1, node, signal.FromBits(1, 1), signal.Strong)
		nl.SetDriver(2, node, signal.FromBits(1, 1), signal.Strong)
		Expect(nl.ResolveThread(tid)).To(Equal(signal.High))
	})

	It("applies a resolved value and reports the change", func() {
		tid := nl.ThreadForBit(node, 0)
		nl.SetDriver(1, node, signal.FromBits(1, 1), signal.Strong)
		v := nl.ResolveThread(tid)
		changes := nl.ApplyThreadValue(tid, v)
		Expect(changes).To(HaveLen(1))
		Expect(nl.Node(node).Signal().Bit(0)).To(Equal(signal.High))
	})

	It("never re-reports a change once settled", func() {
		tid := nl.ThreadForBit(node, 0)
		nl.SetDriver(1, node, signal.FromBits(1, 1), signal.Strong)
		v := nl.ResolveThread(tid)
		nl.ApplyThreadValue(tid, v)
		changes := nl.ApplyThreadValue(tid, v)
		Expect(changes).To(BeEmpty())
	})

	It("drops stale drivers when a component is removed", func() {
		tid := nl.ThreadForBit(node, 0)
		nl.SetDriver(1, node, signal.FromBits(1, 1), signal.Strong)
		nl.RemoveComponent(1)
		_ = nl.Build()
		tid = nl.ThreadForBit(node, 0)
		Expect(nl.ResolveThread(tid)).To(Equal(signal.Unknown))
	})
})

var _ = Describe("Splitter thread construction", func() {
	It("routes wide bits to the mapped fan bit, making them the same thread", func() {
		nl := netlist.NewNetlist()
		wide := nl.Connect(1, netlist.Coordinate{X: 0, Y: 0}, netlist.Out, 2)
		fan0 := nl.Connect(2, netlist.Coordinate{X: 1, Y: 0}, netlist.In, 1)
		fan1 := nl.Connect(3, netlist.Coordinate{X: 1, Y: 1}, netlist.In, 1)

		nl.AddSplitter(netlist.SplitterSpec{
			WideNode: wide,
			FanNodes: []netlist.NodeId{fan0, fan1},
			BitMap: []netlist.FanBit{
				{Fan: 0, Bit: 0, Connected: true},
				{Fan: 1, Bit: 0, Connected: true},
			},
		})

		_ = nl.Build()

		Expect(nl.ThreadForBit(wide, 0)).To(Equal(nl.ThreadForBit(fan0, 0)))
		Expect(nl.ThreadForBit(wide, 1)).To(Equal(nl.ThreadForBit(fan1, 0)))
		Expect(nl.ThreadForBit(wide, 0)).NotTo(Equal(nl.ThreadForBit(wide, 1)))

		tid := nl.ThreadForBit(wide, 0)
		nl.SetDriver(1, wide, signal.FromBits(0b01, 2), signal.Strong)
		v := nl.ResolveThread(tid)
		Expect(v).To(Equal(signal.High))
	})

	It("is a pass-through when the wide side is width 1", func() {
		nl := netlist.NewNetlist()
		wide := nl.Connect(1, netlist.Coordinate{X: 0, Y: 0}, netlist.Out, 1)
		fan0 := nl.Connect(2, netlist.Coordinate{X: 1, Y: 0}, netlist.In, 1)

		nl.AddSplitter(netlist.SplitterSpec{
			WideNode: wide,
			FanNodes: []netlist.NodeId{fan0},
			BitMap:   []netlist.FanBit{{Fan: 0, Bit: 0, Connected: true}},
		})

		_ = nl.Build()
		Expect(nl.ThreadForBit(wide, 0)).To(Equal(nl.ThreadForBit(fan0, 0)))
	})

	It("treats an out-of-range fan target as disconnected, not a crash", func() {
		nl := netlist.NewNetlist()
		wide := nl.Connect(1, netlist.Coordinate{X: 0, Y: 0}, netlist.Out, 1)
		fan0 := nl.Connect(2, netlist.Coordinate{X: 1, Y: 0}, netlist.In, 1)

		nl.AddSplitter(netlist.SplitterSpec{
			WideNode: wide,
			FanNodes: []netlist.NodeId{fan0},
			BitMap:   []netlist.FanBit{{Fan: 5, Bit: 0, Connected: true}},
		})

		diags := nl.Build()
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Kind).To(Equal(netlist.IllegalSplitterMap))
		Expect(nl.ThreadForBit(wide, 0)).NotTo(Equal(nl.ThreadForBit(fan0, 0)))
	})

	It("diagnoses a duplicate fan target instead of unioning both wide bits", func() {
		nl := netlist.NewNetlist()
		wide := nl.Connect(1, netlist.Coordinate{X: 0, Y: 0}, netlist.Out, 2)
		fan0 := nl.Connect(2, netlist.Coordinate{X: 1, Y: 0}, netlist.In, 1)

		nl.AddSplitter(netlist.SplitterSpec{
			WideNode: wide,
			FanNodes: []netlist.NodeId{fan0},
			BitMap: []netlist.FanBit{
				{Fan: 0, Bit: 0, Connected: true},
				{Fan: 0, Bit: 0, Connected: true},
			},
		})

		diags := nl.Build()
		Expect(diags).To(HaveLen(1))
		Expect(diags[0].Kind).To(Equal(netlist.IllegalSplitterMap))

		Expect(nl.ThreadForBit(wide, 0)).To(Equal(nl.ThreadForBit(fan0, 0)))
		Expect(nl.ThreadForBit(wide, 1)).NotTo(Equal(nl.ThreadForBit(fan0, 0)))
	})
})
