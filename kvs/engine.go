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
	"sync/atomic"
)

// Engine is the facade every storage backend (the log-structured Store
// here, or the btree-backed Sled in sled.go) presents to the server and
// client layers. Keeping it an interface is what lets --engine sled swap
// implementations without touching protocol or server code.
type Engine interface {
	Get(key string) (string, bool, error)
	// GetFromSlot is Get but lets the caller pin reads to worker slot n's
	// own ReaderPool, so concurrent callers on different slots never
	// contend on the same cached file handles.
	GetFromSlot(key string, slot uint64) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Stats() Stats
	Close() error
}

// Stats summarizes a directory's state for the admin endpoint.
type Stats struct {
	Engine            string
	Generation        uint64
	UncompactedBytes  uint64
	KeyCount          int
}

// Store is the log-structured Engine implementation: a Command log plus
// Index plus Writer plus ReaderPool wired together.
type Store struct {
	opts  Options
	store LogStore

	index  *Index
	writer *Writer

	readersMu sync.Mutex
	readers   map[uint64]*ReaderPool // keyed by a synthetic per-caller slot; see ReaderForSlot

	watermark  atomic.Uint64 // generations <= watermark are safe to evict from reader caches
	compacting atomic.Bool

	uncompacted atomic.Uint64
	nextGen     atomic.Uint64
}

// Open replays every generation in store (oldest first) to rebuild the
// index, verifies/establishes the engine marker, and returns a ready Store.
func Open(logStore LogStore, opts Options) (*Store, error) {
	if err := checkOrWriteMarker(logStore, EngineKVS); err != nil {
		return nil, err
	}

	gens, err := logStore.ListGenerations()
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	s := &Store{
		opts:    opts,
		store:   logStore,
		index:   newIndex(),
		readers: make(map[uint64]*ReaderPool),
	}

	var uncompacted uint64
	var maxGen uint64
	for _, gen := range gens {
		if gen > maxGen {
			maxGen = gen
		}
		rdr, err := logStore.OpenReader(gen)
		if err != nil {
			return nil, fmt.Errorf("open generation %d for replay: %w", gen, err)
		}
		err = replayLog(&offsetReaderAt{r: rdr}, func(cmd Command, offset, length uint64) error {
			ptr := LogPointer{Generation: gen, Offset: offset, Length: length}
			switch cmd.Kind {
			case CommandSet:
				if old, had := s.index.Insert(cmd.Key, ptr); had {
					uncompacted += old.Length
				}
			case CommandRemove:
				if old, had := s.index.Remove(cmd.Key); had {
					uncompacted += old.Length
				}
				uncompacted += length
			default:
				return fmt.Errorf("%w: %d", ErrUnexpectedCommandType, cmd.Kind)
			}
			return nil
		})
		_ = rdr.Close()
		if err != nil {
			return nil, fmt.Errorf("replay generation %d: %w", gen, err)
		}
	}
	s.uncompacted.Store(uncompacted)

	writeGen := maxGen + 1
	w, err := openWriter(logStore, writeGen, opts.Fsync)
	if err != nil {
		return nil, err
	}
	s.writer = w
	s.nextGen.Store(writeGen + 1)

	return s, nil
}

// offsetReaderAt adapts a ReadAtCloser into a sequential io.Reader for
// replay, since replayLog wants to stream forward through the file once.
type offsetReaderAt struct {
	r   ReadAtCloser
	pos int64
}

func (o *offsetReaderAt) Read(p []byte) (int, error) {
	n, err := o.r.ReadAt(p, o.pos)
	o.pos += int64(n)
	return n, err
}

func (s *Store) Get(key string) (string, bool, error) {
	return s.get(key, 0)
}

// GetFromSlot is Get but reads through worker slot n's own ReaderPool, so
// concurrent requests on different workers never contend on the same
// cached file handles.
func (s *Store) GetFromSlot(key string, slot uint64) (string, bool, error) {
	return s.get(key, slot)
}

func (s *Store) get(key string, slot uint64) (string, bool, error) {
	ptr, ok := s.index.Get(key)
	if !ok {
		return "", false, nil
	}
	rp := s.ReaderForSlot(slot)
	rp.CloseStale()
	cmd, err := rp.Read(ptr)
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	if cmd.Kind != CommandSet {
		return "", false, fmt.Errorf("get %q: %w: %d", key, ErrUnexpectedCommandType, cmd.Kind)
	}
	return cmd.Value, true, nil
}

// Set appends the record and installs it in the index as one step under
// the writer mutex, so two concurrent Sets of the same key can never have
// their index updates land out of append order: writes are totally
// ordered by writer-mutex acquisition.
func (s *Store) Set(key, value string) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	ptr, err := s.writer.AppendLocked(SetCommand(key, value))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if old, had := s.index.Insert(key, ptr); had {
		s.uncompacted.Add(old.Length)
	}
	s.maybeCompact()
	return nil
}

// Remove appends a tombstone and removes the key from the index under the
// same writer-mutex hold, for the same ordering reason as Set.
func (s *Store) Remove(key string) error {
	s.writer.Lock()
	defer s.writer.Unlock()

	if _, ok := s.index.Get(key); !ok {
		return ErrKeyNotFound
	}
	ptr, err := s.writer.AppendLocked(RemoveCommand(key))
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	if old, had := s.index.Remove(key); had {
		s.uncompacted.Add(old.Length)
	}
	s.uncompacted.Add(ptr.Length)
	s.maybeCompact()
	return nil
}

func (s *Store) Stats() Stats {
	return Stats{
		Engine:           EngineKVS,
		Generation:       s.writer.CurrentGeneration(),
		UncompactedBytes: s.uncompacted.Load(),
		KeyCount:         s.index.Len(),
	}
}

func (s *Store) Close() error {
	s.readersMu.Lock()
	for _, rp := range s.readers {
		_ = rp.Close()
	}
	s.readersMu.Unlock()
	return s.writer.Close()
}

// ReaderForSlot returns (creating if necessary) the ReaderPool for worker
// slot n, reusing the watermark published by the compactor.
func (s *Store) ReaderForSlot(n uint64) *ReaderPool {
	s.readersMu.Lock()
	defer s.readersMu.Unlock()
	if rp, ok := s.readers[n]; ok {
		return rp
	}
	rp := newReaderPool(s.store, s.watermark.Load)
	s.readers[n] = rp
	return rp
}

func (s *Store) maybeCompact() {
	if s.uncompacted.Load() < s.opts.CompactionThreshold {
		return
	}
	if !s.compacting.CompareAndSwap(false, true) {
		return // a compaction is already running
	}
	go func() {
		defer s.compacting.Store(false)
		if err := s.compact(); err != nil {
			// Compaction failures are not fatal: the store keeps operating
			// on the uncompacted log, just larger than it needs to be. The
			// next Set/Remove past the threshold will try again.
			fmt.Printf("kvs: compaction failed: %v\n", err)
		}
	}()
}
