// Package replaylog keeps a bounded per-table tape of broadcast events
// for hand-history review, grounded on moonhole-HoldemIJ's replay
// package (ReplayTape/ReplayEvent), stripped of its protobuf envelope
// and repurposed for plain JSON event data.
package replaylog

import (
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"
)

// Record is one entry in a table's tape: a single broadcast EVENT (or
// NEW_HAND marker), in emission order.
type Record struct {
	Seq  uint64         `json:"seq"`
	Kind string         `json:"kind"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Tape is one table's bounded ring buffer of Records.
type Tape struct {
	TableID string   `json:"table_id"`
	Events  []Record `json:"events"`
}

// Journal holds one bounded Tape per table, and optionally mirrors every
// HAND_END record to a sqlite-backed hand-history table when opened with
// a db handle.
type Journal struct {
	mu       sync.Mutex
	capacity int
	tapes    map[string]*Tape
	nextSeq  map[string]uint64
	db       *sql.DB
}

// New builds a Journal bounding each table's tape to capacity events
// (oldest dropped first). capacity <= 0 means unbounded.
func New(capacity int) *Journal {
	return &Journal{
		capacity: capacity,
		tapes:    make(map[string]*Tape),
		nextSeq:  make(map[string]uint64),
	}
}

// OpenSQLite attaches a sqlite-backed hand-history store at path,
// creating its schema if absent. Persistence happens only for a Journal
// given a handle via WithDB; without one the in-memory ring buffer works
// on its own.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS hand_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	table_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	event_type TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_hand_history_table ON hand_history(table_id);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// WithDB attaches an already-opened sqlite handle for HAND_END
// persistence. Returns j for chaining.
func (j *Journal) WithDB(db *sql.DB) *Journal {
	j.db = db
	return j
}

// Append records one entry onto tableID's tape, trimming to capacity.
func (j *Journal) Append(tableID string, rec Record) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec.Seq = j.nextSeq[tableID]
	j.nextSeq[tableID] = rec.Seq + 1

	tape, ok := j.tapes[tableID]
	if !ok {
		tape = &Tape{TableID: tableID}
		j.tapes[tableID] = tape
	}
	tape.Events = append(tape.Events, rec)
	if j.capacity > 0 && len(tape.Events) > j.capacity {
		drop := len(tape.Events) - j.capacity
		tape.Events = tape.Events[drop:]
	}

	if j.db != nil && rec.Type == "HAND_END" {
		j.persistLocked(tableID, rec)
	}
}

func (j *Journal) persistLocked(tableID string, rec Record) {
	data, err := marshalData(rec.Data)
	if err != nil {
		return
	}
	_, _ = j.db.Exec(
		`INSERT INTO hand_history (table_id, seq, event_type, data) VALUES (?, ?, ?, ?)`,
		tableID, rec.Seq, rec.Type, data,
	)
}

// Tape returns a snapshot copy of tableID's current tape.
func (j *Journal) Tape(tableID string) (Tape, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	tape, ok := j.tapes[tableID]
	if !ok {
		return Tape{}, false
	}
	out := Tape{TableID: tape.TableID, Events: make([]Record, len(tape.Events))}
	copy(out.Events, tape.Events)
	return out, true
}

// Drop discards tableID's in-memory tape (sqlite history, if any, is
// untouched).
func (j *Journal) Drop(tableID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.tapes, tableID)
	delete(j.nextSeq, tableID)
}
