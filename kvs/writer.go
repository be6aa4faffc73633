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
	"sync"
)

// Writer owns the active log file and is the only component allowed to
// append to it. At most one Append may be in flight at a time; Refresh is
// used by the compactor to point the writer at a fresh generation once
// compaction has finished.
type Writer struct {
	mu         sync.Mutex
	store      LogStore
	current    AppendFile
	generation uint64
	position   uint64
	fsync      bool
}

func openWriter(store LogStore, generation uint64, fsync bool) (*Writer, error) {
	af, err := store.OpenAppend(generation)
	if err != nil {
		return nil, fmt.Errorf("open log file for generation %d: %w", generation, err)
	}
	return &Writer{store: store, current: af, generation: generation, fsync: fsync}, nil
}

// Append serializes cmd, writes it as one syscall-visible unit, flushes the
// user-space buffer (and, if fsync is enabled, calls down to the OS), and
// returns the pointer the caller must record in the index.
//
// This locks and unlocks w.mu around a single append; callers that must
// also update the index before another writer can interleave (Store.Set,
// Store.Remove) use Lock/AppendLocked/Unlock instead so the append and the
// index update happen as one atomic step under the writer mutex.
func (w *Writer) Append(cmd Command) (LogPointer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(cmd)
}

// Lock acquires the writer mutex for a caller that needs to pair the
// append with a further, must-not-interleave step (an index update).
func (w *Writer) Lock() { w.mu.Lock() }

// Unlock releases a mutex acquired via Lock.
func (w *Writer) Unlock() { w.mu.Unlock() }

// AppendLocked is Append's body without the locking; the caller must hold
// w.mu (via Lock) for the duration.
func (w *Writer) AppendLocked(cmd Command) (LogPointer, error) {
	return w.appendLocked(cmd)
}

func (w *Writer) appendLocked(cmd Command) (LogPointer, error) {
	data, err := encodeCommand(cmd)
	if err != nil {
		return LogPointer{}, fmt.Errorf("encode command: %w", err)
	}

	n, err := w.current.Write(data)
	if err != nil {
		return LogPointer{}, fmt.Errorf("append to generation %d: %w", w.generation, err)
	}
	if err := w.current.Flush(); err != nil {
		return LogPointer{}, fmt.Errorf("flush generation %d: %w", w.generation, err)
	}
	if w.fsync {
		if err := w.current.Sync(); err != nil {
			return LogPointer{}, fmt.Errorf("sync generation %d: %w", w.generation, err)
		}
	}

	ptr := LogPointer{Generation: w.generation, Offset: w.position, Length: uint64(n)}
	w.position += uint64(n)
	return ptr, nil
}

// CurrentGeneration reports the generation currently being appended to.
func (w *Writer) CurrentGeneration() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// Refresh closes the current log file and opens a new one at generation,
// resetting the position counter. Used only by the compactor, once the
// compaction file has been fully written.
func (w *Writer) Refresh(generation uint64) error {
	af, err := w.store.OpenAppend(generation)
	if err != nil {
		return fmt.Errorf("open log file for generation %d: %w", generation, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.current.Close()
	w.current = af
	w.generation = generation
	w.position = 0
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.Close()
}
