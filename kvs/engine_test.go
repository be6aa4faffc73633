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
	"errors"
	"fmt"
	"sync"
	"testing"
)

func openTestStore(t *testing.T, store *memStore) *Store {
	t.Helper()
	s, err := Open(store, DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSetThenGet(t *testing.T) {
	s := openTestStore(t, newMemStore())

	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, found, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || value != "1" {
		t.Fatalf("Get(a) = (%q, %v), want (1, true)", value, found)
	}
}

func TestOverwriteReturnsLatestValue(t *testing.T) {
	s := openTestStore(t, newMemStore())

	for _, v := range []string{"1", "2", "3"} {
		if err := s.Set("a", v); err != nil {
			t.Fatalf("Set(a, %s): %v", v, err)
		}
	}
	value, found, err := s.Get("a")
	if err != nil || !found || value != "3" {
		t.Fatalf("Get(a) = (%q, %v, %v), want (3, true, nil)", value, found, err)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t, newMemStore())

	_, found, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get(missing): %v", err)
	}
	if found {
		t.Fatal("Get(missing) reported found=true")
	}
}

func TestRemoveMissingKeyErrors(t *testing.T) {
	s := openTestStore(t, newMemStore())

	err := s.Remove("missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Remove(missing) = %v, want wrapping ErrKeyNotFound", err)
	}
}

func TestRemoveThenGetIsMissing(t *testing.T) {
	s := openTestStore(t, newMemStore())
	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, found, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get after remove: %v", err)
	}
	if found {
		t.Fatal("Get after remove reported found=true")
	}
}

// TestReplayRebuildsIndex mimics closing and reopening a store over the
// same backend, the way a restarted kvs-server would.
func TestReplayRebuildsIndex(t *testing.T) {
	backingStore := newMemStore()

	s1 := openTestStore(t, backingStore)
	if err := s1.Set("a", "1"); err != nil {
		t.Fatalf("Set a: %v", err)
	}
	if err := s1.Set("b", "2"); err != nil {
		t.Fatalf("Set b: %v", err)
	}
	if err := s1.Remove("a"); err != nil {
		t.Fatalf("Remove a: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(backingStore, DefaultOptions())
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer s2.Close()

	if _, found, _ := s2.Get("a"); found {
		t.Fatal("replayed store still has removed key a")
	}
	value, found, err := s2.Get("b")
	if err != nil || !found || value != "2" {
		t.Fatalf("Get(b) after replay = (%q, %v, %v), want (2, true, nil)", value, found, err)
	}
}

func TestEngineMarkerMismatchIsRejected(t *testing.T) {
	backingStore := newMemStore()
	s, err := Open(backingStore, DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	_, err = OpenSled(backingStore)
	if !errors.Is(err, ErrEngineMismatch) {
		t.Fatalf("OpenSled on a kvs-marked directory = %v, want wrapping ErrEngineMismatch", err)
	}
}

func TestCompactionPreservesLiveData(t *testing.T) {
	backingStore := newMemStore()
	opts := Options{CompactionThreshold: 1 << 40} // high enough that maybeCompact never fires on its own; compact() is called explicitly below
	s, err := Open(backingStore, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	const n = 50
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := s.Set(key, fmt.Sprintf("value-%d", i)); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
		if i%3 == 0 {
			// overwrite every third key so compaction has stale pointers to
			// actually reclaim, not just a pristine append-only log.
			if err := s.Set(key, fmt.Sprintf("value-%d-v2", i)); err != nil {
				t.Fatalf("overwrite %s: %v", key, err)
			}
		}
	}

	// Run compaction to completion synchronously for determinism, instead
	// of relying on the background goroutine maybeCompact spawns.
	if err := s.compact(); err != nil {
		t.Fatalf("compact: %v", err)
	}

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		want := fmt.Sprintf("value-%d", i)
		if i%3 == 0 {
			want = fmt.Sprintf("value-%d-v2", i)
		}
		got, found, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get %s after compaction: %v", key, err)
		}
		if !found || got != want {
			t.Fatalf("Get %s after compaction = (%q, %v), want (%q, true)", key, got, found, want)
		}
	}
}

// TestConcurrentWorkersWriteAndReadOwnKeys runs many goroutines each
// hammering Set/Get on its own key, the way the server's worker
// pool fans concurrent connections out across one Store. Each worker only
// ever touches its own key, so the final value read back must always be
// the last one that worker wrote.
func TestConcurrentWorkersWriteAndReadOwnKeys(t *testing.T) {
	s := openTestStore(t, newMemStore())
	defer s.Close()

	const workers = 32
	const itersPerWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		w := w
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("worker-%d", w)
			for i := 0; i < itersPerWorker; i++ {
				value := fmt.Sprintf("v%d", i)
				if err := s.Set(key, value); err != nil {
					t.Errorf("worker %d Set(%d): %v", w, i, err)
					return
				}
				if _, _, err := s.GetFromSlot(key, uint64(w)); err != nil {
					t.Errorf("worker %d Get(%d): %v", w, i, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		key := fmt.Sprintf("worker-%d", w)
		want := fmt.Sprintf("v%d", itersPerWorker-1)
		got, found, err := s.Get(key)
		if err != nil {
			t.Fatalf("final Get(%s): %v", key, err)
		}
		if !found || got != want {
			t.Fatalf("final Get(%s) = (%q, %v), want (%q, true)", key, got, found, want)
		}
	}
}

// TestConcurrentSetsOfSameKeyStayOrdered hammers a single key from many
// goroutines, each writing a value tagged with its worker number and
// iteration. Because Set holds the writer mutex across both the append and
// the index update, the index can never end up pointing at an older append
// than the log's tail, so the index entry must be the log's last record and
// the final readback must match it.
func TestConcurrentSetsOfSameKeyStayOrdered(t *testing.T) {
	s := openTestStore(t, newMemStore())
	defer s.Close()

	const workers = 16
	const itersPerWorker = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		w := w
		go func() {
			defer wg.Done()
			for i := 0; i < itersPerWorker; i++ {
				value := fmt.Sprintf("w%d-%d", w, i)
				if err := s.Set("shared", value); err != nil {
					t.Errorf("worker %d Set(%d): %v", w, i, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Whichever write landed last, Get must return exactly what the log's
	// tail record holds -- not a stale or torn value.
	ptr, ok := s.index.Get("shared")
	if !ok {
		t.Fatal("index has no entry for \"shared\" after concurrent writes")
	}
	// The log's tail record ends exactly where the writer's next append
	// would start.
	if ptr.Generation != s.writer.CurrentGeneration() || ptr.Offset+ptr.Length != s.writer.position {
		t.Fatalf("index points at %+v, want the log's tail record ending at offset %d", ptr, s.writer.position)
	}
	rp := s.ReaderForSlot(0)
	tail, err := rp.Read(ptr)
	if err != nil {
		t.Fatalf("read tail record: %v", err)
	}
	got, found, err := s.Get("shared")
	if err != nil {
		t.Fatalf("Get(shared): %v", err)
	}
	if !found || got != tail.Value {
		t.Fatalf("Get(shared) = (%q, %v), want (%q, true) matching the log's tail record", got, found, tail.Value)
	}
}

func TestStatsReflectsKeyCount(t *testing.T) {
	s := openTestStore(t, newMemStore())
	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(k, "v"); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	if got := s.Stats().KeyCount; got != 3 {
		t.Fatalf("Stats().KeyCount = %d, want 3", got)
	}
	if err := s.Remove("a"); err != nil {
		t.Fatalf("Remove a: %v", err)
	}
	if got := s.Stats().KeyCount; got != 2 {
		t.Fatalf("Stats().KeyCount after remove = %d, want 2", got)
	}
}
