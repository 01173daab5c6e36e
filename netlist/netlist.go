package netlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sarchlab/logisimcore/signal"
)

// LevelTrace is a custom slog level above Info, used to log a driver whose
// width does not match its node's, matching the teacher's log/slog usage idiom
// (core/util.go's LevelTrace/LevelWaveform).
const LevelTrace = slog.LevelInfo + 1

// Trace logs a connectivity-layer debug line at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

type pinReg struct {
	component ComponentId
	node      NodeId
	dir       Direction
	width     signal.Width
}

type wireSeg struct {
	a, b      Coordinate
	widthHint signal.Width
}

type tunnelTouch struct {
	coord     Coordinate
	name      string
	widthHint signal.Width
}

// Netlist owns every Node, Bundle and Thread for one Simulation's lifetime
// (spec §4.3, §5 "owned exclusively by the Simulation value").
type Netlist struct {
	nodes      []*Node
	nodeByCoord map[Coordinate]NodeId

	pins      []pinReg
	wires     []wireSeg
	tunnels   []tunnelTouch
	splitters []SplitterSpec

	bundles []*Bundle
	threads []*Thread

	// threadOfBundleBit maps a (bundle, bit) member back to its ThreadId,
	// populated by Build and consulted by ThreadForBit; threadsOfNode lists
	// each node's threads for ThreadsForNode and SetDriver.
	threadOfBundleBit map[bundleBit]ThreadId
	threadsOfNode     map[NodeId][]ThreadId

	diagnostics []Diagnostic
	built       bool
}

type bundleBit struct {
	bundle BundleId
	bit    int
}

// NewNetlist returns an empty netlist.
func NewNetlist() *Netlist {
	return &Netlist{
		nodeByCoord: make(map[Coordinate]NodeId),
	}
}

// nodeAt returns the Node at coord, creating it if this is its first
// reference (spec §3.5 Lifecycle).
func (nl *Netlist) nodeAt(coord Coordinate) NodeId {
	if id, ok := nl.nodeByCoord[coord]; ok {
		return id
	}
	id := NodeId(len(nl.nodes))
	n := &Node{
		id:      id,
		coord:   coord,
		drivers: make(map[ComponentId]DriverContribution),
	}
	nl.nodes = append(nl.nodes, n)
	nl.nodeByCoord[coord] = id
	nl.built = false
	return id
}

// Connect registers a component pin at coord and returns the Node it binds
// to (spec Builder API `sim.connect`).
func (nl *Netlist) Connect(component ComponentId, coord Coordinate, dir Direction, width signal.Width) NodeId {
	node := nl.nodeAt(coord)
	nl.pins = append(nl.pins, pinReg{component: component, node: node, dir: dir, width: width})
	nl.built = false
	return node
}

// AddWire joins two coordinates with a wire segment (spec `sim.add_wire`).
func (nl *Netlist) AddWire(a, b Coordinate, widthHint signal.Width) {
	nl.nodeAt(a)
	nl.nodeAt(b)
	nl.wires = append(nl.wires, wireSeg{a: a, b: b, widthHint: widthHint})
	nl.built = false
}

// AddTunnel registers coord as an endpoint of the named tunnel (spec
// `sim.add_tunnel`). Every coordinate sharing the same name is merged into
// one bundle during Build.
func (nl *Netlist) AddTunnel(coord Coordinate, name string, widthHint signal.Width) {
	nl.nodeAt(coord)
	nl.tunnels = append(nl.tunnels, tunnelTouch{coord: coord, name: name, widthHint: widthHint})
	nl.built = false
}

// AddSplitter registers one Splitter component's structural bit-map for
// thread construction (spec §4.3 step 3).
func (nl *Netlist) AddSplitter(spec SplitterSpec) {
	nl.splitters = append(nl.splitters, spec)
	nl.built = false
}

// SetNodeName labels a node for trace output (spec §3.5).
func (nl *Netlist) SetNodeName(id NodeId, name string) {
	nl.nodes[id].name = name
	nl.nodes[id].hasName = true
}

// Node returns the node for id.
func (nl *Netlist) Node(id NodeId) *Node { return nl.nodes[id] }

// NumNodes reports how many nodes the netlist has ever created.
func (nl *Netlist) NumNodes() int { return len(nl.nodes) }

// Components lists every distinct ComponentId that has registered a pin.
func (nl *Netlist) Components() []ComponentId {
	seen := make(map[ComponentId]bool)
	var out []ComponentId
	for _, p := range nl.pins {
		if !seen[p.component] {
			seen[p.component] = true
			out = append(out, p.component)
		}
	}
	return out
}

// RemoveComponent drops every pin and driver contribution belonging to
// component, so driver maps never contain stale components (spec §4.3
// Invariants). Callers must rebuild (Build) afterward.
func (nl *Netlist) RemoveComponent(component ComponentId) {
	filtered := nl.pins[:0]
	for _, p := range nl.pins {
		if p.component != component {
			filtered = append(filtered, p)
		}
	}
	nl.pins = filtered

	for _, n := range nl.nodes {
		delete(n.drivers, component)
	}
	nl.built = false
}

// Diagnostics returns the findings from the most recent Build.
func (nl *Netlist) Diagnostics() []Diagnostic { return nl.diagnostics }

// Built reports whether the connectivity graph reflects the current set of
// wires/pins/tunnels/splitters.
func (nl *Netlist) Built() bool { return nl.built }

// Build runs the four-step connectivity algorithm from spec §4.3. It is
// idempotent given unchanged topology (RT-1): calling it twice in a row
// with no intervening builder calls produces identical bundles/threads.
func (nl *Netlist) Build() []Diagnostic {
	nl.diagnostics = nil

	bundleOf := nl.buildBundles()
	nl.resolveWidths(bundleOf)
	nl.buildThreads(bundleOf)

	for _, n := range nl.nodes {
		if !n.pinned {
			n.current = signal.New(n.width, signal.Unknown)
		} else {
			n.current = signal.New(n.width, signal.Error)
		}
	}

	nl.built = true
	return nl.diagnostics
}

// buildBundles runs union-find step 1 and materializes nl.bundles,
// returning each node's assigned bundle root index.
func (nl *Netlist) buildBundles() []int {
	uf := newUnionFind(len(nl.nodes))

	for _, w := range nl.wires {
		uf.union(int(nl.nodeByCoord[w.a]), int(nl.nodeByCoord[w.b]))
	}

	byName := make(map[string][]Coordinate)
	for _, t := range nl.tunnels {
		byName[t.name] = append(byName[t.name], t.coord)
	}
	for _, coords := range byName {
		for i := 1; i < len(coords); i++ {
			uf.union(int(nl.nodeByCoord[coords[0]]), int(nl.nodeByCoord[coords[i]]))
		}
	}

	rootToBundle := make(map[int]BundleId)
	nl.bundles = nil
	bundleOf := make([]int, len(nl.nodes))

	for i, n := range nl.nodes {
		root := uf.find(i)
		bid, ok := rootToBundle[root]
		if !ok {
			bid = BundleId(len(nl.bundles))
			nl.bundles = append(nl.bundles, &Bundle{id: bid})
			rootToBundle[root] = bid
		}
		nl.bundles[bid].nodes = append(nl.bundles[bid].nodes, n.id)
		n.bundle = bid
		bundleOf[i] = int(bid)
	}

	return bundleOf
}

// resolveWidths runs step 2: collect pin/wire/tunnel width hints per
// bundle and settle one width, or flag a conflict.
func (nl *Netlist) resolveWidths(bundleOf []int) {
	widthVotes := make([]map[signal.Width]int, len(nl.bundles))
	for i := range widthVotes {
		widthVotes[i] = make(map[signal.Width]int)
	}

	vote := func(node NodeId, w signal.Width) {
		if w <= 0 {
			return
		}
		b := nl.nodes[node].bundle
		widthVotes[b][w]++
	}

	for _, p := range nl.pins {
		vote(p.node, p.width)
	}
	for _, w := range nl.wires {
		vote(nl.nodeByCoord[w.a], w.widthHint)
		vote(nl.nodeByCoord[w.b], w.widthHint)
	}
	for _, t := range nl.tunnels {
		vote(nl.nodeByCoord[t.coord], t.widthHint)
	}

	for _, b := range nl.bundles {
		votes := widthVotes[b.id]
		switch len(votes) {
		case 0:
			b.width = 1
		case 1:
			for w := range votes {
				b.width = w
			}
		default:
			b.conflict = true
			best := signal.Width(0)
			bestCount := -1
			for w, c := range votes {
				if c > bestCount || (c == bestCount && w > best) {
					best, bestCount = w, c
				}
			}
			b.width = best

			var nodeIDs []NodeId
			for _, nid := range b.nodes {
				nodeIDs = append(nodeIDs, nid)
			}
			nl.diagnostics = append(nl.diagnostics, Diagnostic{
				Kind:    WidthConflict,
				Message: fmt.Sprintf("bundle %d has conflicting widths %v", b.id, votes),
				Bundle:  b.id,
				Nodes:   nodeIDs,
			})
		}
	}

	for _, n := range nl.nodes {
		b := nl.bundles[n.bundle]
		n.width = b.width
		n.pinned = b.conflict
	}
}

// buildThreads runs step 3: partition every (bundle, bit) into threads,
// following splitter bit-maps transitively, then materializes each
// thread's (node, bit) membership across every node in its bundles.
func (nl *Netlist) buildThreads(_ []int) {
	// Assign each (bundle, bit) a dense index for the union-find.
	index := make(map[bundleBit]int)
	var keys []bundleBit
	for _, b := range nl.bundles {
		for bit := 0; bit < int(b.width); bit++ {
			key := bundleBit{bundle: b.id, bit: bit}
			index[key] = len(keys)
			keys = append(keys, key)
		}
	}

	uf := newUnionFind(len(keys))

	// claimed tracks which wide bit has already unioned into a given
	// (fan bundle, fan bit) target, so a second wide bit mapped onto the
	// same physical fan location is diagnosed as IllegalSplitterMap instead
	// of silently unioning both wide bits into one thread through the
	// shared fan key (bundle.go's Connected=false covers duplicate targets
	// the same way it covers out-of-range ones).
	claimed := make(map[bundleBit]int)

	for _, sp := range nl.splitters {
		wideBundle := nl.nodes[sp.WideNode].bundle
		wideWidth := int(nl.bundles[wideBundle].width)

		for wideBit := 0; wideBit < len(sp.BitMap) && wideBit < wideWidth; wideBit++ {
			target := sp.BitMap[wideBit]
			if !target.Connected {
				continue
			}
			if target.Fan < 0 || target.Fan >= len(sp.FanNodes) {
				nl.diagnostics = append(nl.diagnostics, Diagnostic{
					Kind:    IllegalSplitterMap,
					Message: fmt.Sprintf("splitter wide bit %d targets out-of-range fan %d", wideBit, target.Fan),
				})
				continue
			}
			fanNode := sp.FanNodes[target.Fan]
			fanBundle := nl.nodes[fanNode].bundle
			if target.Bit < 0 || target.Bit >= int(nl.bundles[fanBundle].width) {
				nl.diagnostics = append(nl.diagnostics, Diagnostic{
					Kind:    IllegalSplitterMap,
					Message: fmt.Sprintf("splitter fan %d bit %d out of range", target.Fan, target.Bit),
				})
				continue
			}

			fanKey := bundleBit{bundle: fanBundle, bit: target.Bit}
			if owner, ok := claimed[fanKey]; ok && owner != wideBit {
				nl.diagnostics = append(nl.diagnostics, Diagnostic{
					Kind:    IllegalSplitterMap,
					Message: fmt.Sprintf("splitter fan %d bit %d already targeted by wide bit %d, ignoring wide bit %d", target.Fan, target.Bit, owner, wideBit),
				})
				continue
			}
			claimed[fanKey] = wideBit

			wideKey := bundleBit{bundle: wideBundle, bit: wideBit}
			uf.union(index[wideKey], index[fanKey])
		}
	}

	rootToThread := make(map[int]ThreadId)
	nl.threads = nil
	nl.threadOfBundleBit = make(map[bundleBit]ThreadId)

	for i, key := range keys {
		root := uf.find(i)
		tid, ok := rootToThread[root]
		if !ok {
			tid = ThreadId(len(nl.threads))
			nl.threads = append(nl.threads, &Thread{id: tid})
			rootToThread[root] = tid
		}
		nl.threadOfBundleBit[key] = tid
	}

	for _, b := range nl.bundles {
		for bit := 0; bit < int(b.width); bit++ {
			tid := nl.threadOfBundleBit[bundleBit{bundle: b.id, bit: bit}]
			for _, nid := range b.nodes {
				nl.threads[tid].members = append(nl.threads[tid].members, NodeBit{Node: nid, Bit: bit})
			}
		}
	}

	nl.threadsOfNode = make(map[NodeId][]ThreadId)
	for _, t := range nl.threads {
		seen := make(map[NodeId]bool)
		for _, m := range t.members {
			if !seen[m.Node] {
				seen[m.Node] = true
				nl.threadsOfNode[m.Node] = append(nl.threadsOfNode[m.Node], t.id)
			}
		}
	}
}

// ThreadsForNode returns every thread that covers at least one bit of
// node, deduplicated.
func (nl *Netlist) ThreadsForNode(node NodeId) []ThreadId {
	return append([]ThreadId(nil), nl.threadsOfNode[node]...)
}

// ThreadForBit returns the thread covering a specific (node, bit).
func (nl *Netlist) ThreadForBit(node NodeId, bit int) ThreadId {
	b := nl.nodes[node].bundle
	return nl.threadOfBundleBit[bundleBit{bundle: b, bit: bit}]
}

// Thread returns the thread for id.
func (nl *Netlist) Thread(id ThreadId) *Thread { return nl.threads[id] }

// Bundle returns the bundle for id.
func (nl *Netlist) Bundle(id BundleId) *Bundle { return nl.bundles[id] }

// SetDriver replaces component's contribution to node and returns every
// thread whose value may now need re-resolution (spec §4.3 `set_driver`).
// A width-mismatched signal is recorded as an Error contribution rather
// than returning an exception (spec §4.1 Failure).
func (nl *Netlist) SetDriver(component ComponentId, node NodeId, sig signal.Signal, strength signal.Strength) []ThreadId {
	n := nl.nodes[node]

	if sig.Width() != n.width {
		Trace("netlist: driver width mismatch", "node", node, "component", component,
			"want", n.width, "got", sig.Width())
		sig = signal.New(n.width, signal.Error)
	}

	n.drivers[component] = DriverContribution{Signal: sig, Strength: strength}

	return nl.ThreadsForNode(node)
}

// ClearDriver removes component's contribution to node, used when a
// component stops asserting a pin (e.g. tri-state disable).
func (nl *Netlist) ClearDriver(component ComponentId, node NodeId) []ThreadId {
	n := nl.nodes[node]
	delete(n.drivers, component)
	return nl.ThreadsForNode(node)
}

// ResolveThread combines every driver contribution touching any (node,
// bit) in thread t, honoring the strength lattice before the value-combine
// table (spec §4.3 `resolve_thread`).
func (nl *Netlist) ResolveThread(t ThreadId) signal.Value {
	thread := nl.threads[t]

	best := signal.Floating
	val := signal.Unknown
	found := false

	for _, m := range thread.members {
		n := nl.nodes[m.Node]
		if n.pinned {
			return signal.Error
		}
		for _, d := range n.drivers {
			bit := d.Signal.Bit(m.Bit)
			switch {
			case !found:
				val, best, found = bit, d.Strength, true
			case d.Strength > best:
				val, best = bit, d.Strength
			case d.Strength == best:
				val = signal.Combine(val, bit)
			}
		}
	}

	if !found {
		return signal.Unknown
	}
	return val
}

// NodeBitChange reports one committed (node, bit) value transition,
// feeding the trace interface (spec §4.6).
type NodeBitChange struct {
	Node     NodeId
	Bit      int
	Old, New signal.Value
}

// ApplyThreadValue writes v into every (node, bit) member of thread t and
// reports which bits actually changed (spec §4.3 `apply_thread_value`).
func (nl *Netlist) ApplyThreadValue(t ThreadId, v signal.Value) []NodeBitChange {
	thread := nl.threads[t]
	var changes []NodeBitChange

	for _, m := range thread.members {
		n := nl.nodes[m.Node]
		old := n.current.Bit(m.Bit)
		if old == v {
			continue
		}
		n.current = n.current.SetBit(m.Bit, v)
		changes = append(changes, NodeBitChange{Node: m.Node, Bit: m.Bit, Old: old, New: v})
	}

	return changes
}

// ResetDrivers clears every node's driver map and current signal back to
// its post-Build quiescent value (Unknown, or Error if pinned), without
// touching topology. Used by the propagator's Reset dispatch (spec §4.4
// "clear driver tables").
func (nl *Netlist) ResetDrivers() {
	for _, n := range nl.nodes {
		for c := range n.drivers {
			delete(n.drivers, c)
		}
		if n.pinned {
			n.current = signal.New(n.width, signal.Error)
		} else {
			n.current = signal.New(n.width, signal.Unknown)
		}
	}
}

// ComponentsReadingNode returns every component with an In or InOut pin
// bound to node, for the propagator's post-change fanout.
func (nl *Netlist) ComponentsReadingNode(node NodeId) []ComponentId {
	var out []ComponentId
	for _, p := range nl.pins {
		if p.node == node && (p.dir == In || p.dir == InOut) {
			out = append(out, p.component)
		}
	}
	return out
}

// PinsOfComponent returns every pin registration for component, in
// registration order (stable, per spec §3.8's "pin names are stable").
func (nl *Netlist) PinsOfComponent(component ComponentId) []struct {
	Node NodeId
	Dir  Direction
} {
	var out []struct {
		Node NodeId
		Dir  Direction
	}
	for _, p := range nl.pins {
		if p.component == component {
			out = append(out, struct {
				Node NodeId
				Dir  Direction
			}{Node: p.node, Dir: p.dir})
		}
	}
	return out
}
