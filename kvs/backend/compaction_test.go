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

package backend

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/launix-de/kvs"
)

func totalLogBytes(t *testing.T, dir string) int64 {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			t.Fatalf("Info: %v", err)
		}
		total += fi.Size()
	}
	return total
}

// TestCompactionShrinksDirectorySize repeatedly overwrites a small set of
// keys with a low compaction threshold and checks that the directory's
// total on-disk size settles below what an uncompacted log of the same
// writes would occupy.
func TestCompactionShrinksDirectorySize(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	opts := kvs.DefaultOptions()
	opts.CompactionThreshold = 512 // small enough to trigger several compactions below

	engine, err := kvs.Open(store, opts)
	if err != nil {
		t.Fatalf("kvs.Open: %v", err)
	}
	defer engine.Close()

	value := strings.Repeat("v", 64)
	const keys = 8
	const rounds = 400
	for i := 0; i < rounds; i++ {
		key := fmt.Sprintf("key-%d", i%keys)
		if err := engine.Set(key, value); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	// An uncompacted log holds one record per write, and each record here
	// encodes to 99 bytes. The bound allows len(value)+32 = 96 bytes a
	// record, just under that, so a directory that never compacted could
	// not drop below it.
	uncompactedUpperBound := int64(rounds) * int64(len(value)+32)

	deadline := time.Now().Add(2 * time.Second)
	var size int64
	for {
		size = totalLogBytes(t, dir)
		if size < uncompactedUpperBound {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("directory size %d bytes never dropped below the uncompacted upper bound %d bytes", size, uncompactedUpperBound)
		}
		time.Sleep(10 * time.Millisecond)
	}

	for i := 0; i < keys; i++ {
		key := fmt.Sprintf("key-%d", i)
		got, found, err := engine.Get(key)
		if err != nil {
			t.Fatalf("Get %s after compaction: %v", key, err)
		}
		if !found || got != value {
			t.Fatalf("Get %s after compaction = (%q, %v), want (%q, true)", key, got, found, value)
		}
	}
}

// TestCompactionWithArchivingKeepsArchivesOutOfReplay verifies that when
// ArchiveOldGenerations is enabled, the lz4 archive files compaction leaves
// behind are not mistaken for live generations on a subsequent Open (they
// live in a separate namespace; see LogStore.OpenArchive).
func TestCompactionWithArchivingKeepsArchivesOutOfReplay(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	opts := kvs.DefaultOptions()
	opts.CompactionThreshold = 256
	opts.ArchiveOldGenerations = true

	engine, err := kvs.Open(store, opts)
	if err != nil {
		t.Fatalf("kvs.Open: %v", err)
	}

	value := strings.Repeat("v", 64)
	const keys = 4
	const rounds = 100
	for i := 0; i < rounds; i++ {
		key := fmt.Sprintf("key-%d", i%keys)
		if err := engine.Set(key, value); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}
	// maybeCompact runs in the background; give any in-flight pass a chance
	// to finish before closing, so Close doesn't race a writer refresh.
	time.Sleep(200 * time.Millisecond)
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := kvs.Open(store, opts)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer reopened.Close()

	for i := 0; i < keys; i++ {
		key := fmt.Sprintf("key-%d", i)
		got, found, err := reopened.Get(key)
		if err != nil {
			t.Fatalf("Get %s after reopen: %v", key, err)
		}
		if !found || got != value {
			t.Fatalf("Get %s after reopen = (%q, %v), want (%q, true)", key, got, found, value)
		}
	}
}
