/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package kvs

import (
	"sync/atomic"

	nlrm "github.com/launix-de/NonLockingReadMap"
)

// indexEntry is one slot of the index: the key plus the pointer to its most
// recent Set record. It satisfies nlrm.KeyGetter[string], the constraint
// NonLockingReadMap requires for its element type.
type indexEntry struct {
	key string
	ptr LogPointer
}

func (e indexEntry) ComputeSize() uint {
	return uint(len(e.key)) + 32 // key bytes + LogPointer fields, rough accounting like cacheMapEntryOverhead
}

func (e indexEntry) GetKey() string { return e.key }

// Index is the concurrent ordered map from key to LogPointer: lock-free
// reads, optimistic copy-on-write inserts/removes, iteration in key order.
// It is a thin wrapper over github.com/launix-de/NonLockingReadMap, suited
// to this read-heavy/write-rare access pattern.
type Index struct {
	m     nlrm.NonLockingReadMap[indexEntry, string]
	count atomic.Int64 // live key count, kept in step with m so Len is O(1)
}

func newIndex() *Index {
	return &Index{m: nlrm.New[indexEntry, string]()}
}

// Get returns the pointer currently stored for key, if any.
func (ix *Index) Get(key string) (LogPointer, bool) {
	e := ix.m.Get(key)
	if e == nil {
		return LogPointer{}, false
	}
	return e.ptr, true
}

// Insert stores ptr for key, returning the pointer it replaced, if any.
func (ix *Index) Insert(key string, ptr LogPointer) (LogPointer, bool) {
	old := ix.m.Set(&indexEntry{key: key, ptr: ptr})
	if old == nil {
		ix.count.Add(1)
		return LogPointer{}, false
	}
	return old.ptr, true
}

// Remove deletes key from the index, returning the pointer it held, if any.
func (ix *Index) Remove(key string) (LogPointer, bool) {
	old := ix.m.Remove(key)
	if old == nil {
		return LogPointer{}, false
	}
	ix.count.Add(-1)
	return old.ptr, true
}

// IndexItem is one (key, pointer) pair as seen by Iter.
type IndexItem struct {
	Key     string
	Pointer LogPointer
}

// Iter returns a key-ordered snapshot of the whole index. Because the
// backing map is copy-on-write, this snapshot is stable even while
// concurrent inserts/removes continue, giving compaction a
// snapshot-consistent view to rewrite from.
func (ix *Index) Iter() []IndexItem {
	all := ix.m.GetAll()
	out := make([]IndexItem, len(all))
	for i, e := range all {
		out[i] = IndexItem{Key: e.key, Pointer: e.ptr}
	}
	return out
}

// Len reports the number of live keys. Tracked as a running counter rather
// than derived from Iter/GetAll, so Stats() (polled once a second per open
// admin websocket) stays O(1) instead of re-copying the whole key set.
func (ix *Index) Len() int {
	return int(ix.count.Load())
}
