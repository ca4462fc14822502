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

package kvstore

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/eventwindow/errs"
)

// FlushListener is invoked once per dirty cache entry at a flush boundary,
// synchronously and before the underlying write is exposed to subsequent
// reads as clean. Order of invocation across one flush is unspecified but
// stable within that flush.
type FlushListener func(key []byte, value []byte)

// CachingKVStore is a write-through cache in front of a KVStore. Puts
// buffer in memory until Flush runs (driven by the host's commit
// interval); reads always consult the cache first so a read immediately
// following a Put observes it.
type CachingKVStore struct {
	mu       sync.Mutex
	backing  KVStore
	dirty    map[string][]byte // nil value means a buffered delete
	listener FlushListener
}

// NewCachingKVStore wraps backing with a write-through cache.
func NewCachingKVStore(backing KVStore) *CachingKVStore {
	return &CachingKVStore{
		backing: backing,
		dirty:   make(map[string][]byte),
	}
}

// RegisterFlushListener sets the single observer invoked per dirty entry
// on Flush. A second call replaces the first — the design notes call for
// one registered observer, not general pub-sub.
func (c *CachingKVStore) RegisterFlushListener(f FlushListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = f
}

// Get reads the cache first, falling back to the backing store.
func (c *CachingKVStore) Get(key []byte) ([]byte, bool, error) {
	c.mu.Lock()
	if v, ok := c.dirty[string(key)]; ok {
		c.mu.Unlock()
		if v == nil {
			return nil, false, nil
		}
		out := make([]byte, len(v))
		copy(out, v)
		return out, true, nil
	}
	c.mu.Unlock()
	return c.backing.Get(key)
}

// GetOrDefault returns the stored value for key, or def if absent.
func (c *CachingKVStore) GetOrDefault(key []byte, def []byte) ([]byte, error) {
	v, found, err := c.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrTransientStore, err)
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// Put buffers a write until the next Flush.
func (c *CachingKVStore) Put(key []byte, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	c.dirty[string(key)] = v
	return nil
}

// DeleteWithoutPriorValue buffers a delete. Named for the fact that, unlike
// a changelog-backed delete, it does not need to read the prior value
// first to emit a tombstone record — the timer store relies on this when
// it deletes a fired timer.
func (c *CachingKVStore) DeleteWithoutPriorValue(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[string(key)] = nil
	return nil
}

// Range merges the cache and the backing store in key order. Cache entries
// shadow backing-store entries with the same key; buffered deletes (nil
// values) suppress the backing-store entry instead of surfacing it.
func (c *CachingKVStore) Range(from, to []byte) (Iterator, error) {
	c.mu.Lock()
	overlay := make(map[string][]byte, len(c.dirty))
	for k, v := range c.dirty {
		if inRange([]byte(k), from, to) {
			overlay[k] = v
		}
	}
	c.mu.Unlock()

	backingIt, err := c.backing.Range(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrTransientStore, err)
	}
	defer backingIt.Close()

	merged := make(map[string][]byte, len(overlay))
	for backingIt.HasNext() {
		k, v, err := backingIt.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrTransientStore, err)
		}
		if v == nil {
			v = []byte{} // a stored empty value, not a buffered delete
		}
		merged[string(k)] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k, v := range merged {
		if v == nil {
			continue // buffered delete
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outKeys := make([][]byte, len(keys))
	outValues := make([][]byte, len(keys))
	for i, k := range keys {
		outKeys[i] = []byte(k)
		outValues[i] = merged[k]
	}
	return newSliceIterator(outKeys, outValues), nil
}

// All returns every live entry across cache and backing store.
func (c *CachingKVStore) All() (Iterator, error) {
	return c.Range(nil, nil)
}

// DeleteRangeWithoutChangelog range-deletes without emitting individual
// changelog tombstones — the deliberate expiry optimization: downstream
// state reconstruction doesn't need to replay each deletion because the
// expiry timer that triggered it is itself idempotent on replay.
func (c *CachingKVStore) DeleteRangeWithoutChangelog(from, to []byte) error {
	c.mu.Lock()
	for k := range c.dirty {
		if inRange([]byte(k), from, to) {
			delete(c.dirty, k)
		}
	}
	c.mu.Unlock()
	return c.backing.DeleteRange(from, to)
}

// Flush drains every dirty entry: for puts, the flush listener is invoked
// synchronously before the write reaches the backing store; for buffered
// deletes, the backing store delete runs with no listener callback (the
// listener's contract is "dirty entries still pending in the window
// store", and a deleted entry is no longer a window snapshot worth
// emitting). A dirty entry is removed from the cache only after its own
// backing-store write completes, not in one bulk sweep up front — that is
// what lets a listener call Get on this same store and observe the
// canonical value it was just handed, without waiting on the backing
// write it is running ahead of.
func (c *CachingKVStore) Flush() error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	// Order of invocation is unspecified but stable within one flush: sort
	// keys so a given build is deterministic for tests.
	sort.Strings(keys)
	listener := c.listener
	c.mu.Unlock()

	for _, k := range keys {
		c.mu.Lock()
		v, ok := c.dirty[k]
		c.mu.Unlock()
		if !ok {
			continue
		}

		if v == nil {
			if err := c.backing.Delete([]byte(k)); err != nil {
				return fmt.Errorf("%w: flush delete %x: %v", errs.ErrTransientStore, k, err)
			}
			c.mu.Lock()
			delete(c.dirty, k)
			c.mu.Unlock()
			continue
		}

		if listener != nil {
			listener([]byte(k), v)
		}
		if err := c.backing.Put([]byte(k), v); err != nil {
			return fmt.Errorf("%w: flush put %x: %v", errs.ErrTransientStore, k, err)
		}
		c.mu.Lock()
		delete(c.dirty, k)
		c.mu.Unlock()
	}
	return nil
}

func inRange(key, from, to []byte) bool {
	if from != nil && bytes.Compare(key, from) < 0 {
		return false
	}
	if to != nil && bytes.Compare(key, to) >= 0 {
		return false
	}
	return true
}
