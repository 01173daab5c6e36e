package netlist

import "github.com/sarchlab/logisimcore/signal"

// Bundle is a set of wire segments electrically joined by touching or by a
// shared tunnel name; all its nodes share one width (spec §3.6).
type Bundle struct {
	id       BundleId
	nodes    []NodeId
	width    signal.Width
	conflict bool
}

// Id returns the bundle's handle.
func (b *Bundle) Id() BundleId { return b.id }

// Nodes lists every node grouped into this bundle.
func (b *Bundle) Nodes() []NodeId { return append([]NodeId(nil), b.nodes...) }

// Width is the bundle's resolved width.
func (b *Bundle) Width() signal.Width { return b.width }

// Conflict reports whether component pins on this bundle disagreed on
// width; every node of a conflicted bundle is pinned to Error.
func (b *Bundle) Conflict() bool { return b.conflict }

// Thread is a single-bit electrically contiguous path across bundles and
// splitters — the finest unit of propagation (spec §3.7).
type Thread struct {
	id      ThreadId
	members []NodeBit
}

// Id returns the thread's handle.
func (t *Thread) Id() ThreadId { return t.id }

// Members lists every (node, bit) pair carried by this thread.
func (t *Thread) Members() []NodeBit { return append([]NodeBit(nil), t.members...) }

// FanBit names the destination of one wide-side bit of a splitter mapping:
// fan pin index Fan, bit position Bit within that fan pin's node. A mapping
// entry with Connected=false represents an out-of-range or duplicate
// target, treated as disconnected for that bit (spec §4.3 Failure modes).
type FanBit struct {
	Fan       int
	Bit       int
	Connected bool
}

// SplitterSpec is the structural description of one Splitter component,
// feeding thread construction (spec §4.3 step 3). WideNode is the node at
// the wide side; FanNodes are the nodes at each fan output, in order;
// BitMap has one entry per bit of the wide side.
type SplitterSpec struct {
	WideNode NodeId
	FanNodes []NodeId
	BitMap   []FanBit
}
