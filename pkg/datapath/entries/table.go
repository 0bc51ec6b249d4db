// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package entries contains the match-action table machinery shared by the
// forwarding pipelines: keyed lookup with exact or longest-prefix disciplines,
// a per-table default action and optional per-entry expiry.
package entries

import (
	"bytes"
	"hash/fnv"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Kind is the key discipline of a table
type Kind uint8

const (
	// ExactMatch requires bit-for-bit key equality
	ExactMatch Kind = iota
	// LongestPrefixMatch selects the entry with the greatest matching prefix length
	LongestPrefixMatch
)

// Key identifies a table entry; PrefixLen is meaningful only in LPM tables
type Key struct {
	Value     []byte
	PrefixLen int32
}

// ExactKey returns an exact-match key for the given value
func ExactKey(value []byte) Key {
	return Key{Value: value, PrefixLen: int32(len(value) * 8)}
}

// LPMKey returns a longest-prefix-match key for the given value and prefix length
func LPMKey(value []byte, prefixLen int32) Key {
	return Key{Value: value, PrefixLen: prefixLen}
}

// Entry is a single table row: key, action and optional expiry time.
// Entries are owned exclusively by their table.
type Entry struct {
	Key    Key
	Action Action
	Expiry time.Time
}

// Expired returns true if the entry has an expiry at or before the given time
func (e *Entry) Expired(now time.Time) bool {
	return !e.Expiry.IsZero() && !e.Expiry.After(now)
}

// Table is a single match-action table. Lookups may run concurrently;
// installs, removals and sweeps are serialized against them.
type Table struct {
	id            uint32
	name          string
	kind          Kind
	defaultAction Action

	lock sync.RWMutex
	rows map[uint64]*Entry
}

// NewTable creates a new table with the given identity, key discipline and
// default action. The default action is what a lookup miss resolves to.
func NewTable(id uint32, name string, kind Kind, defaultAction Action) *Table {
	return &Table{
		id:            id,
		name:          name,
		kind:          kind,
		defaultAction: defaultAction,
		rows:          make(map[uint64]*Entry),
	}
}

// ID returns the table ID
func (t *Table) ID() uint32 {
	return t.id
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

// Kind returns the table key discipline
func (t *Table) Kind() Kind {
	return t.kind
}

// DefaultAction returns the action resolved on lookup miss
func (t *Table) DefaultAction() Action {
	return t.defaultAction
}

// Size returns the number of installed entries
func (t *Table) Size() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.rows)
}

// Install inserts or replaces the entry for the given key; replacement is
// last-write-wins. A non-zero ttl sets the entry expiry relative to now.
func (t *Table) Install(key Key, action Action, ttl time.Duration) {
	entry := &Entry{Key: key, Action: action}
	if ttl > 0 {
		entry.Expiry = time.Now().Add(ttl)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.rows[entryKey(key)] = entry
}

// Remove deletes the entry for the given key if present; no-op otherwise
func (t *Table) Remove(key Key) {
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.rows, entryKey(key))
}

// Lookup resolves the given probe value against the table. The second return
// value reports whether an installed entry was hit; on miss the table default
// action is returned, since a miss is a branch of the pipeline, not an error.
// Entries already expired at the given time are ignored.
func (t *Table) Lookup(probe []byte, now time.Time) (Action, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.kind == ExactMatch {
		if entry, ok := t.rows[entryKey(ExactKey(probe))]; ok &&
			!entry.Expired(now) && bytes.Equal(entry.Key.Value, probe) {
			return entry.Action, true
		}
		return t.defaultAction, false
	}

	// Longest-prefix discipline: walk all entries, best prefix length wins.
	// Prefix uniqueness per length is assumed; behavior under duplicate
	// provisioned prefixes is undefined.
	var best *Entry
	for _, entry := range t.rows {
		if entry.Expired(now) || !prefixMatches(entry.Key, probe) {
			continue
		}
		if best == nil || entry.Key.PrefixLen > best.Key.PrefixLen {
			best = entry
		}
	}
	if best == nil {
		return t.defaultAction, false
	}
	return best.Action, true
}

// Sweep removes entries whose expiry is at or before the given time
func (t *Table) Sweep(now time.Time) {
	t.lock.Lock()
	defer t.lock.Unlock()
	for k, entry := range t.rows {
		if entry.Expired(now) {
			delete(t.rows, k)
		}
	}
}

// Entries returns a snapshot of the installed entries
func (t *Table) Entries() []*Entry {
	t.lock.RLock()
	defer t.lock.RUnlock()
	list := make([]*Entry, 0, len(t.rows))
	for _, entry := range t.rows {
		list = append(list, entry)
	}
	return list
}

// Returns true if the first PrefixLen bits of the probe equal the key value
func prefixMatches(key Key, probe []byte) bool {
	bits := int(key.PrefixLen)
	if bits > len(probe)*8 || bits > len(key.Value)*8 {
		return false
	}
	full := bits / 8
	if !bytes.Equal(key.Value[:full], probe[:full]) {
		return false
	}
	if rem := uint(bits % 8); rem > 0 {
		mask := byte(0xff << (8 - rem))
		return key.Value[full]&mask == probe[full]&mask
	}
	return true
}

// Produces a row key as the fnv-64 hash of the entry key value and prefix length
func entryKey(key Key) uint64 {
	hf := fnv.New64()
	_, _ = hf.Write([]byte{byte(key.PrefixLen >> 8), byte(key.PrefixLen)})
	_, _ = hf.Write(key.Value)
	return hf.Sum64()
}

// Tables represents the set of match-action tables of one datapath, addressed
// by table ID for control-plane provisioning.
type Tables struct {
	tables map[uint32]*Table
}

// NewTables creates a registry over the given tables
func NewTables(tables ...*Table) *Tables {
	ts := &Tables{tables: make(map[uint32]*Table)}
	for _, t := range tables {
		ts.tables[t.ID()] = t
	}
	return ts
}

// Table returns the table with the given ID, or nil
func (ts *Tables) Table(id uint32) *Table {
	return ts.tables[id]
}

// Tables returns all registered tables
func (ts *Tables) Tables() []*Table {
	list := make([]*Table, 0, len(ts.tables))
	for _, t := range ts.tables {
		list = append(list, t)
	}
	return list
}

// Install installs the given entry into the table with the specified ID
func (ts *Tables) Install(tableID uint32, key Key, action Action, ttl time.Duration) error {
	table, ok := ts.tables[tableID]
	if !ok {
		return errors.NewNotFound("table %d not found", tableID)
	}
	table.Install(key, action, ttl)
	return nil
}

// Remove removes the entry with the given key from the table with the specified ID
func (ts *Tables) Remove(tableID uint32, key Key) error {
	table, ok := ts.tables[tableID]
	if !ok {
		return errors.NewNotFound("table %d not found", tableID)
	}
	table.Remove(key)
	return nil
}

// Sweep removes expired entries from all tables
func (ts *Tables) Sweep(now time.Time) {
	for _, t := range ts.tables {
		t.Sweep(now)
	}
}
