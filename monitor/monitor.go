// Package monitor implements a read-only HTTP query surface over a running
// Simulation, mirroring the akita monitoring.Monitor HTTP server the
// teacher's config.DeviceBuilder wires into every device build via
// WithMonitor — the same "observability of a running simulation" concern,
// routed with the same gorilla/mux dependency the teacher's go.mod already
// carries (indirectly, through akita).
package monitor

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/sim"
)

// Server exposes /nodes/{id} and /stats as read-only JSON views over a
// Simulation. It never mutates the Simulation — the same constraint spec
// §4.6 places on trace Observers applies here.
type Server struct {
	sim    *sim.Simulation
	router *mux.Router
}

// New builds a Server routing queries to s.
func New(s *sim.Simulation) *Server {
	srv := &Server{sim: s, router: mux.NewRouter()}
	srv.router.HandleFunc("/nodes/{id}", srv.handleNode).Methods(http.MethodGet)
	srv.router.HandleFunc("/stats", srv.handleStats).Methods(http.MethodGet)
	return srv
}

// ServeHTTP implements http.Handler, so a Server can be passed directly to
// http.ListenAndServe or httptest.NewServer.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.router.ServeHTTP(w, r)
}

type nodeResponse struct {
	Node uint64   `json:"node"`
	Bits []string `json:"bits"`
}

func (srv *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid node id", http.StatusBadRequest)
		return
	}
	if id >= uint64(srv.sim.Netlist().NumNodes()) {
		http.Error(w, "no such node", http.StatusNotFound)
		return
	}

	sig := srv.sim.NodeSignal(netlist.NodeId(id))
	bits := make([]string, sig.Width())
	for i := range bits {
		bits[i] = sig.Bit(i).String()
	}
	writeJSON(w, nodeResponse{Node: id, Bits: bits})
}

type statsResponse struct {
	State            string `json:"state"`
	CurrentTime      uint64 `json:"current_time"`
	EventsProcessed  uint64 `json:"events_processed"`
	OscillationTrips uint64 `json:"oscillation_trips"`
}

func (srv *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := srv.sim.Stats()
	writeJSON(w, statsResponse{
		State:            st.State.String(),
		CurrentTime:      uint64(st.CurrentTime),
		EventsProcessed:  st.EventsProcessed,
		OscillationTrips: st.OscillationTrips,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
