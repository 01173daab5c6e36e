package trace

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// TableSink buffers every committed signal change and renders them as a
// go-pretty table on demand, following the teacher's core/util.go pattern
// of rendering register/buffer state as a table rather than raw log lines.
type TableSink struct {
	rows []tableRow
}

type tableRow struct {
	node     netlist.NodeId
	bit      int
	old, new signal.Value
	time     timeevent.Timestamp
}

// NewTableSink returns an empty sink ready to register with a Simulation.
func NewTableSink() *TableSink { return &TableSink{} }

func (s *TableSink) OnSignalChange(node netlist.NodeId, bit int, old, new signal.Value, time timeevent.Timestamp) {
	s.rows = append(s.rows, tableRow{node: node, bit: bit, old: old, new: new, time: time})
}

func (s *TableSink) OnClockEdge(netlist.NodeId, timeevent.Edge, timeevent.Timestamp) {}

func (s *TableSink) OnStepComplete(timeevent.Timestamp, uint64) {}

func (s *TableSink) OnSimulationEvent(SimEvent) {}

// Render writes every buffered change as a table to w.
func (s *TableSink) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Time", "Node", "Bit", "Old", "New"})
	for _, r := range s.rows {
		t.AppendRow(table.Row{r.time, r.node, r.bit, r.old.String(), r.new.String()})
	}
	t.Render()
}

var _ Observer = (*TableSink)(nil)
