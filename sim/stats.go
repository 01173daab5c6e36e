package sim

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/sarchlab/logisimcore/timeevent"
)

// Stats is spec §6.1's SimulationStats: the snapshot `sim.stats()` and
// RunResult.Stats return. OscillationTrips is tracked beyond spec.md's
// literal fields, for the same "observability of a long-running
// simulation" concern §3.10 raises for the oscillation guard.
type Stats struct {
	State            State
	CurrentTime      timeevent.Timestamp
	EventsProcessed  uint64
	OscillationTrips uint64
	Host             *HostSample
}

// HostSample is one gopsutil reading of the process's host, optionally
// attached to Stats by SampleHost.
type HostSample struct {
	CPUPercent     float64
	MemUsedPercent float64
	SampledAt      time.Duration // elapsed since the sample call started
}

// SampleHost records a HostSample into s, following the teacher's
// akita-monitoring pattern of attaching host metrics alongside simulation
// counters during a long run. window bounds how long the CPU percentage
// reading blocks; 0 takes an instantaneous (less accurate) reading.
func (s *Stats) SampleHost(window time.Duration) error {
	start := time.Now()
	percents, err := cpu.Percent(window, false)
	if err != nil {
		return err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return err
	}

	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	s.Host = &HostSample{
		CPUPercent:     cpuPct,
		MemUsedPercent: vm.UsedPercent,
		SampledAt:      time.Since(start),
	}
	return nil
}

// Render writes a go-pretty summary table of s to w, following
// core/util.go's pattern of rendering state as a table rather than log
// lines.
func (s Stats) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"State", s.State.String()})
	t.AppendRow(table.Row{"CurrentTime", s.CurrentTime})
	t.AppendRow(table.Row{"EventsProcessed", s.EventsProcessed})
	t.AppendRow(table.Row{"OscillationTrips", s.OscillationTrips})
	if s.Host != nil {
		t.AppendRow(table.Row{"HostCPU%", s.Host.CPUPercent})
		t.AppendRow(table.Row{"HostMem%", s.Host.MemUsedPercent})
	}
	t.Render()
}
