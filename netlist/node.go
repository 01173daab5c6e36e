package netlist

import "github.com/sarchlab/logisimcore/signal"

// DriverContribution is one component's current output onto a Node (spec
// §3.5's drivers map value).
type DriverContribution struct {
	Signal   signal.Signal
	Strength signal.Strength
}

// Node is a connection point at one coordinate (spec §3.5).
type Node struct {
	id       NodeId
	coord    Coordinate
	width    signal.Width
	bundle   BundleId
	name     string
	hasName  bool
	current  signal.Signal
	drivers  map[ComponentId]DriverContribution
	pinned   bool // width-conflicted: forced to Error until rebuild
}

// Id returns the node's handle.
func (n *Node) Id() NodeId { return n.id }

// Coordinate returns the point this node was created at.
func (n *Node) Coordinate() Coordinate { return n.coord }

// Width returns the node's resolved bus width.
func (n *Node) Width() signal.Width { return n.width }

// Bundle returns the BundleId this node was grouped into during the last
// successful build.
func (n *Node) Bundle() BundleId { return n.bundle }

// Name returns the node's trace label, if any (spec §3.5).
func (n *Node) Name() (string, bool) { return n.name, n.hasName }

// Signal returns the node's last resolved value.
func (n *Node) Signal() signal.Signal { return n.current }

// ErrorPinned reports whether the node's bundle is width-conflicted, in
// which case every bit of the node reads as Error until the next rebuild
// (spec §4.3 Invariants).
func (n *Node) ErrorPinned() bool { return n.pinned }

// Drivers exposes a read-only snapshot of the node's current driver map.
func (n *Node) Drivers() map[ComponentId]DriverContribution {
	cp := make(map[ComponentId]DriverContribution, len(n.drivers))
	for k, v := range n.drivers {
		cp[k] = v
	}
	return cp
}
