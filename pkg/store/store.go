// Package store is an in-memory reactive table store.
//
// Data is organized as tables of rows of scalar cells. All mutation goes
// through transactions: [Store.Transaction] runs a function against a [Tx]
// handle, and the convenience mutators on [Store] are single-operation
// transactions. Listeners registered with [Store.AddListener] are invoked
// once per committed transaction with the set of changed row ids per table.
//
// Writes that would not change stored content are suppressed: they neither
// mark rows as changed nor trigger listeners. Reloading identical data is
// therefore observationally a no-op.
package store

import (
	"maps"
	"reflect"
	"sort"
	"sync"
)

// Value is a scalar cell value: string, bool, int64, or float64.
// Nil is never stored; writing nil deletes the cell.
type Value = any

// Row maps cell names to values.
type Row map[string]Value

// String reads a string cell, tolerating absent or differently typed
// values by returning the empty string.
func (r Row) String(key string) string {
	v, _ := r[key].(string)

	return v
}

// Bool reads a bool cell, defaulting to false.
func (r Row) Bool(key string) bool {
	v, _ := r[key].(bool)

	return v
}

// Int reads an integer cell, defaulting to 0.
func (r Row) Int(key string) int64 {
	switch v := r[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Table maps row ids to rows.
type Table map[string]Row

// Tables maps table names to tables.
type Tables map[string]Table

// ChangedRows is the set of row ids that changed in one transaction.
type ChangedRows map[string]struct{}

// ChangedTables maps table names to the rows that changed in them.
// Presence is the signal; deleted rows appear alongside updated ones.
type ChangedTables map[string]ChangedRows

// Listener receives the change set of a committed transaction.
type Listener func(changed ChangedTables)

// Store holds tables guarded by a single lock. Listener dispatch happens
// after the lock is released, on the mutating goroutine.
type Store struct {
	mu sync.RWMutex

	tables Tables

	listenerMu   sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// Tx is the mutation handle passed to [Store.Transaction] callbacks.
// It must not be retained after the callback returns.
type Tx struct {
	s       *Store
	changed ChangedTables
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tables:    make(Tables),
		listeners: make(map[int]Listener),
	}
}

// AddListener registers a change listener and returns its removal func.
func (s *Store) AddListener(l Listener) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l

	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()

		delete(s.listeners, id)
	}
}

// Transaction runs fn under the store lock and dispatches a single change
// notification when it commits. Reads through tx observe writes made
// earlier in the same transaction.
func (s *Store) Transaction(fn func(tx *Tx)) {
	s.mu.Lock()

	tx := &Tx{s: s, changed: make(ChangedTables)}
	fn(tx)
	tx.s = nil

	changed := tx.changed
	s.mu.Unlock()

	if len(changed) == 0 {
		return
	}

	for _, l := range s.snapshotListeners() {
		l(changed)
	}
}

// GetTables returns a deep copy of all tables.
func (s *Store) GetTables() Tables {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyTables(s.tables)
}

// GetTable returns a deep copy of one table. Missing tables are empty.
func (s *Store) GetTable(name string) Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyTable(s.tables[name])
}

// GetRow returns a copy of one row and whether it exists.
func (s *Store) GetRow(table, rowID string) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tables[table][rowID]
	if !ok {
		return nil, false
	}

	return maps.Clone(row), true
}

// GetCell returns one cell value and whether it exists.
func (s *Store) GetCell(table, rowID, cell string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.tables[table][rowID][cell]

	return v, ok
}

// RowIDs returns the sorted row ids of a table.
func (s *Store) RowIDs(table string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tables[table]))
	for id := range s.tables[table] {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// SetRow replaces a whole row in a single-operation transaction.
func (s *Store) SetRow(table, rowID string, row Row) {
	s.Transaction(func(tx *Tx) { tx.SetRow(table, rowID, row) })
}

// SetPartialRow merges cells into a row in a single-operation transaction.
func (s *Store) SetPartialRow(table, rowID string, partial Row) {
	s.Transaction(func(tx *Tx) { tx.SetPartialRow(table, rowID, partial) })
}

// SetCell sets one cell in a single-operation transaction.
func (s *Store) SetCell(table, rowID, cell string, v Value) {
	s.Transaction(func(tx *Tx) { tx.SetCell(table, rowID, cell, v) })
}

// DelRow removes a row in a single-operation transaction.
func (s *Store) DelRow(table, rowID string) {
	s.Transaction(func(tx *Tx) { tx.DelRow(table, rowID) })
}

// SetRow replaces the whole row. A write equal to the stored row is a no-op.
func (tx *Tx) SetRow(table, rowID string, row Row) {
	current, exists := tx.s.tables[table][rowID]
	if exists && rowsEqual(current, row) {
		return
	}

	if tx.s.tables[table] == nil {
		tx.s.tables[table] = make(Table)
	}

	tx.s.tables[table][rowID] = maps.Clone(row)
	tx.markChanged(table, rowID)
}

// SetPartialRow merges cells into an existing row, creating it if absent.
// Nil cell values delete the cell.
func (tx *Tx) SetPartialRow(table, rowID string, partial Row) {
	merged := maps.Clone(tx.s.tables[table][rowID])
	if merged == nil {
		merged = make(Row, len(partial))
	}

	for cell, v := range partial {
		if v == nil {
			delete(merged, cell)
			continue
		}

		merged[cell] = v
	}

	tx.SetRow(table, rowID, merged)
}

// SetCell sets one cell. Setting nil deletes the cell.
func (tx *Tx) SetCell(table, rowID, cell string, v Value) {
	tx.SetPartialRow(table, rowID, Row{cell: v})
}

// DelRow removes a row. Removing an absent row is a no-op.
func (tx *Tx) DelRow(table, rowID string) {
	if _, ok := tx.s.tables[table][rowID]; !ok {
		return
	}

	delete(tx.s.tables[table], rowID)

	if len(tx.s.tables[table]) == 0 {
		delete(tx.s.tables, table)
	}

	tx.markChanged(table, rowID)
}

// GetCell reads one cell, observing earlier writes in this transaction.
func (tx *Tx) GetCell(table, rowID, cell string) (Value, bool) {
	v, ok := tx.s.tables[table][rowID][cell]

	return v, ok
}

// GetRow reads one row, observing earlier writes in this transaction.
func (tx *Tx) GetRow(table, rowID string) (Row, bool) {
	row, ok := tx.s.tables[table][rowID]
	if !ok {
		return nil, false
	}

	return maps.Clone(row), true
}

// RowIDs returns the sorted row ids of a table as seen by this transaction.
func (tx *Tx) RowIDs(table string) []string {
	ids := make([]string, 0, len(tx.s.tables[table]))
	for id := range tx.s.tables[table] {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (tx *Tx) markChanged(table, rowID string) {
	if tx.changed[table] == nil {
		tx.changed[table] = make(ChangedRows)
	}

	tx.changed[table][rowID] = struct{}{}
}

func (s *Store) snapshotListeners() []Listener {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}

	return out
}

func rowsEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}

	for cell, av := range a {
		bv, ok := b[cell]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}

	return true
}

func copyTable(t Table) Table {
	out := make(Table, len(t))
	for id, row := range t {
		out[id] = maps.Clone(row)
	}

	return out
}

func copyTables(t Tables) Tables {
	out := make(Tables, len(t))
	for name, table := range t {
		out[name] = copyTable(table)
	}

	return out
}
