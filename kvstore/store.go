/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package kvstore holds the ordered key-value store contract the timer
// store and window aggregator are built on, a write-through caching layer
// in front of it, and a simple in-memory reference implementation of the
// contract itself. The real backing store (typically LSM-based) is an
// external collaborator; only its shape is specified here.
package kvstore

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/eventwindow/errs"
)

// Iterator is a scoped resource holding a cursor over a range scan. Callers
// must always Close it, including on every error/panic exit path — a
// skipped Close on an LSM-backed store leaks its snapshot.
type Iterator interface {
	HasNext() bool
	Next() (key []byte, value []byte, err error)
	Close() error
}

// KVStore is the ordered key-value interface the core is built against.
// Keys sort lexicographically by byte value. A production implementation
// is typically LSM-backed (RocksDB/LevelDB-shaped); the shared block cache
// such a store uses is owned process-wide and initialized once, never
// implemented here.
type KVStore interface {
	Get(key []byte) (value []byte, found bool, err error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	// Range scans [from, to) in key order. to == nil means unbounded.
	Range(from, to []byte) (Iterator, error)
	All() (Iterator, error)
	// DeleteRange removes every key in [from, to).
	DeleteRange(from, to []byte) error
}

// MemStore is a reference KVStore backed by a sorted slice of entries. It
// exists so the timer store and window aggregator can be exercised without
// a real embedded database; it is not meant to be performant at scale the
// way a real LSM engine is. Deletions are tombstoned by removing the entry
// outright — there is no compaction to simulate here since the sorted
// slice never accumulates physical tombstones the way an LSM would.
type MemStore struct {
	mu      sync.RWMutex
	keys    [][]byte
	values  [][]byte
}

// NewMemStore creates an empty in-memory ordered store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// search returns the index of key, or the insertion point and false.
func (m *MemStore) search(key []byte) (int, bool) {
	i := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], key) >= 0
	})
	if i < len(m.keys) && bytes.Equal(m.keys[i], key) {
		return i, true
	}
	return i, false
}

func (m *MemStore) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.search(key)
	if !ok {
		return nil, false, nil
	}
	v := make([]byte, len(m.values[i]))
	copy(v, m.values[i])
	return v, true, nil
}

func (m *MemStore) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	i, ok := m.search(k)
	if ok {
		m.values[i] = v
		return nil
	}
	m.keys = append(m.keys, nil)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k
	m.values = append(m.values, nil)
	copy(m.values[i+1:], m.values[i:])
	m.values[i] = v
	return nil
}

func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.search(key)
	if !ok {
		return nil
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	return nil
}

func (m *MemStore) DeleteRange(from, to []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lo := sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], from) >= 0 })
	hi := len(m.keys)
	if to != nil {
		hi = sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], to) >= 0 })
	}
	if lo >= hi {
		return nil
	}
	m.keys = append(m.keys[:lo], m.keys[hi:]...)
	m.values = append(m.values[:lo], m.values[hi:]...)
	return nil
}

func (m *MemStore) Range(from, to []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lo := sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], from) >= 0 })
	hi := len(m.keys)
	if to != nil {
		hi = sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], to) >= 0 })
	}
	return newSliceIterator(m.keys[lo:hi], m.values[lo:hi]), nil
}

func (m *MemStore) All() (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newSliceIterator(m.keys, m.values), nil
}

// sliceIterator snapshots the key/value slices it is handed at
// construction time, mimicking the point-in-time snapshot semantics of an
// LSM range iterator.
type sliceIterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
	closed bool
}

func newSliceIterator(keys, values [][]byte) *sliceIterator {
	ks := make([][]byte, len(keys))
	vs := make([][]byte, len(values))
	copy(ks, keys)
	copy(vs, values)
	return &sliceIterator{keys: ks, values: vs}
}

func (it *sliceIterator) HasNext() bool {
	return !it.closed && it.pos < len(it.keys)
}

func (it *sliceIterator) Next() ([]byte, []byte, error) {
	if it.closed {
		return nil, nil, fmt.Errorf("%w: iterator closed", errs.ErrInvariantViolation)
	}
	if it.pos >= len(it.keys) {
		return nil, nil, fmt.Errorf("%w: iterator exhausted", errs.ErrInvariantViolation)
	}
	k, v := it.keys[it.pos], it.values[it.pos]
	it.pos++
	return k, v, nil
}

func (it *sliceIterator) Close() error {
	it.closed = true
	return nil
}
