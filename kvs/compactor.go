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
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// compact rewrites the live index into a fresh generation and retires the
// stale ones:
//
//  1. Take a snapshot of every live key and its current pointer.
//  2. Write every live value into one fresh "compaction generation", in
//     whatever order the snapshot gave us.
//  3. Swap each index entry to its new pointer, but only if nobody wrote a
//     newer value for that key while step 2 was running (optimistic — a
//     concurrent Set always wins over a compaction rewrite of stale data).
//  4. Point the Writer at a generation past the compaction one, so new
//     writes never land in a file the compactor might still be finishing.
//  5. Publish the watermark: readers drop their cached handles for every
//     generation strictly below the compaction generation. That range
//     includes the write generation of the pass, which is kept on disk and
//     may still be referenced by the index; a later read reopens it.
//  6. Optionally archive the old generations (lz4-compressed) and then
//     remove them from the backend.
func (s *Store) compact() error {
	snapshot := s.index.Iter()
	if len(snapshot) == 0 {
		return nil
	}
	// Concurrent Set/Remove calls keep adding to s.uncompacted for the
	// whole duration of this pass (they only need the writer mutex, which
	// compact() does not hold except briefly inside Refresh). Snapshot the
	// counter now so the end-of-pass update below can fold those
	// concurrent additions back in instead of clobbering them.
	uncompactedAtStart := s.uncompacted.Load()

	oldGenerations, err := s.store.ListGenerations()
	if err != nil {
		return fmt.Errorf("list generations before compaction: %w", err)
	}
	writeGeneration := s.writer.CurrentGeneration()

	compactionGen := s.nextGen.Add(1) - 1

	cw, err := openWriter(s.store, compactionGen, s.opts.Fsync)
	if err != nil {
		return fmt.Errorf("open compaction generation %d: %w", compactionGen, err)
	}

	rp := newReaderPool(s.store, func() uint64 { return 0 }) // scratch pool, never evicts mid-compaction
	type rewrite struct {
		key    string
		oldPtr LogPointer
		newPtr LogPointer
	}
	rewrites := make([]rewrite, 0, len(snapshot))

	for _, item := range snapshot {
		cmd, err := rp.Read(item.Pointer)
		if err != nil {
			_ = cw.Close()
			return fmt.Errorf("read %q during compaction: %w", item.Key, err)
		}
		newPtr, err := cw.Append(SetCommand(item.Key, cmd.Value))
		if err != nil {
			_ = cw.Close()
			return fmt.Errorf("write %q during compaction: %w", item.Key, err)
		}
		rewrites = append(rewrites, rewrite{key: item.Key, oldPtr: item.Pointer, newPtr: newPtr})
	}
	_ = rp.Close()
	if err := cw.Close(); err != nil {
		return fmt.Errorf("close compaction generation %d: %w", compactionGen, err)
	}

	var stillUncompacted uint64
	for _, rw := range rewrites {
		cur, ok := s.index.Get(rw.key)
		if !ok || cur != rw.oldPtr {
			// Key was removed or overwritten after the snapshot was taken;
			// the rewritten copy in the compaction generation is now dead
			// weight, but harmless — it will be cleaned up by the next
			// compaction pass.
			stillUncompacted += rw.newPtr.Length
			continue
		}
		s.index.Insert(rw.key, rw.newPtr)
	}

	nextWriteGen := s.nextGen.Add(1) - 1
	if err := s.writer.Refresh(nextWriteGen); err != nil {
		return fmt.Errorf("refresh writer past compaction generation %d: %w", compactionGen, err)
	}

	// Fold in whatever concurrent Sets/Removes added to the counter while
	// this pass was running, rather than overwriting it: the garbage that
	// existed at uncompactedAtStart is what this pass just reclaimed, but
	// anything added since then is real, live garbage that still needs a
	// future compaction.
	for {
		cur := s.uncompacted.Load()
		next := cur - uncompactedAtStart + stillUncompacted
		if cur < uncompactedAtStart {
			next = stillUncompacted // defensive: should not happen, counter only grows
		}
		if s.uncompacted.CompareAndSwap(cur, next) {
			break
		}
	}

	// writeGeneration may hold writes that landed concurrently with the
	// compaction pass, so it is not removed here — every other generation
	// below compactionGen has had its live keys rewritten into it (or was
	// already empty) and is deleted. The watermark covers writeGeneration
	// too, so readers close its cached handles and reopen them on demand.
	s.watermark.Store(compactionGen - 1)

	for _, gen := range oldGenerations {
		if gen >= compactionGen || gen == writeGeneration {
			continue
		}
		if s.opts.ArchiveOldGenerations {
			if err := archiveGeneration(s.store, gen); err != nil {
				fmt.Printf("kvs: archiving generation %d: %v\n", gen, err)
			}
		}
		if err := s.store.Remove(gen); err != nil {
			fmt.Printf("kvs: removing generation %d: %v\n", gen, err)
		}
	}

	return nil
}

// archiveGeneration writes an lz4-compressed copy of a generation's log file
// next to it (as "<generation>.log.lz4" via the backend's OpenArchive) before
// the uncompressed original is removed, so an operator can still recover
// pre-compaction history later if needed.
func archiveGeneration(store LogStore, generation uint64) error {
	src, err := store.OpenReader(generation)
	if err != nil {
		return err
	}
	defer src.Close()

	size, err := store.Size(generation)
	if err != nil {
		return err
	}
	raw := make([]byte, size)
	if _, err := src.ReadAt(raw, 0); err != nil && size > 0 {
		return err
	}

	dst, err := store.OpenArchive(generation)
	if err != nil {
		return err
	}
	defer dst.Close()

	zw := lz4.NewWriter(dst)
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return dst.Flush()
}
