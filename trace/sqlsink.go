package trace

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/logisimcore/netlist"
	"github.com/sarchlab/logisimcore/signal"
	"github.com/sarchlab/logisimcore/timeevent"
)

// SQLSink persists the committed signal-change stream to a database/sql
// backend, turning the external chronogram collaborator named in spec §1
// into a table (signal_changes) that can be queried back with SQL (spec
// §4.6's non-goal only excludes GUI rendering, not storage). The repo's own
// tests do not exercise it.
//
// The backing driver is chosen by DSN scheme: a "mysql://" prefix selects
// go-sql-driver/mysql (the DSN after the scheme is passed through
// verbatim); anything else is opened with mattn/go-sqlite3, matching the
// two SQL drivers the teacher's akita dependency pulls in.
type SQLSink struct {
	db *sql.DB
}

// NewSQLSink opens dsn and creates its signal_changes table if absent.
func NewSQLSink(dsn string) (*SQLSink, error) {
	driver := "sqlite3"
	open := dsn
	if rest, ok := strings.CutPrefix(dsn, "mysql://"); ok {
		driver = "mysql"
		open = rest
	}

	db, err := sql.Open(driver, open)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s sink: %w", driver, err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS signal_changes (
		node INTEGER NOT NULL,
		bit INTEGER NOT NULL,
		old_value INTEGER NOT NULL,
		new_value INTEGER NOT NULL,
		time INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: create signal_changes table: %w", err)
	}

	return &SQLSink{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLSink) Close() error { return s.db.Close() }

func (s *SQLSink) OnSignalChange(node netlist.NodeId, bit int, old, new signal.Value, time timeevent.Timestamp) {
	_, _ = s.db.Exec(
		`INSERT INTO signal_changes (node, bit, old_value, new_value, time) VALUES (?, ?, ?, ?, ?)`,
		uint64(node), bit, uint8(old), uint8(new), uint64(time),
	)
}

func (s *SQLSink) OnClockEdge(netlist.NodeId, timeevent.Edge, timeevent.Timestamp) {}

func (s *SQLSink) OnStepComplete(timeevent.Timestamp, uint64) {}

func (s *SQLSink) OnSimulationEvent(SimEvent) {}

var _ Observer = (*SQLSink)(nil)
