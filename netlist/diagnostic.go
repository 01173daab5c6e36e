package netlist

// DiagnosticKind tags the category of a build-time diagnostic (spec §7).
type DiagnosticKind string

const (
	WidthConflict     DiagnosticKind = "WidthConflict"
	IllegalSplitterMap DiagnosticKind = "IllegalSplitterMap"
)

// Diagnostic is a non-fatal build-time finding returned from Build/Finalize;
// the netlist remains usable, with affected nodes pinned to Error.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Bundle  BundleId
	Nodes   []NodeId
}
