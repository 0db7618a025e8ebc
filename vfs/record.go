// SPDX-FileCopyrightText: 2026 The treefs authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vfs

import (
	"maps"
	"slices"
	"sync"
)

// Record is a free-form key/value metadata record. It may be read
// concurrently; mutations are serialized internally.
type Record struct {
	mu   sync.RWMutex
	vals map[string]any
}

// NewRecord creates an empty [Record].
func NewRecord() *Record {
	return &Record{vals: make(map[string]any)}
}

// Set stores a value under the given key, replacing any previous value.
func (r *Record) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vals[key] = value
}

// Get returns the value stored under the given key.
func (r *Record) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vals[key]

	return v, ok
}

// Has reports whether a value is stored under the given key.
func (r *Record) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.vals[key]

	return ok
}

// Delete removes the value stored under the given key.
func (r *Record) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.vals, key)
}

// Keys returns all keys in sorted order.
func (r *Record) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.vals))
}
