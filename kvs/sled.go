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

	"github.com/google/btree"
)

// sledItem is one entry of the Sled engine's B-tree, ordered by key.
type sledItem struct {
	key   string
	value string
}

func (a sledItem) Less(than btree.Item) bool {
	return a.key < than.(sledItem).key
}

// Sled is an alternate Engine implementation: a single in-memory B-tree
// checkpointed to one log file on every write, trading the
// generational-compaction design for a simpler write-the-whole-tree model.
// Built on google/btree for its ordered iteration (range scans aren't used
// here, but the ordered dump iteration in Each is).
type Sled struct {
	mu   sync.RWMutex
	tree *btree.BTree

	store      LogStore
	generation uint64
}

// OpenSled replays the single checkpoint log file (if any) and returns a
// ready Sled engine.
func OpenSled(logStore LogStore) (*Sled, error) {
	if err := checkOrWriteMarker(logStore, EngineSled); err != nil {
		return nil, err
	}

	s := &Sled{tree: btree.New(32), store: logStore}

	gens, err := logStore.ListGenerations()
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	for _, gen := range gens {
		if gen > s.generation {
			s.generation = gen
		}
	}
	if len(gens) == 0 {
		return s, nil
	}

	rdr, err := logStore.OpenReader(s.generation)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint %d: %w", s.generation, err)
	}
	defer rdr.Close()

	err = replayLog(&offsetReaderAt{r: rdr}, func(cmd Command, _, _ uint64) error {
		switch cmd.Kind {
		case CommandSet:
			s.tree.ReplaceOrInsert(sledItem{key: cmd.Key, value: cmd.Value})
		case CommandRemove:
			s.tree.Delete(sledItem{key: cmd.Key})
		default:
			return fmt.Errorf("%w: %d", ErrUnexpectedCommandType, cmd.Kind)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay checkpoint %d: %w", s.generation, err)
	}
	return s, nil
}

func (s *Sled) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item := s.tree.Get(sledItem{key: key})
	if item == nil {
		return "", false, nil
	}
	return item.(sledItem).value, true, nil
}

// GetFromSlot satisfies Engine; the whole tree is held in memory under a
// single RWMutex, so there is no per-slot reader cache to pin reads to.
func (s *Sled) GetFromSlot(key string, _ uint64) (string, bool, error) {
	return s.Get(key)
}

func (s *Sled) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(sledItem{key: key, value: value})
	return s.checkpointLocked()
}

func (s *Sled) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree.Get(sledItem{key: key}) == nil {
		return ErrKeyNotFound
	}
	s.tree.Delete(sledItem{key: key})
	return s.checkpointLocked()
}

// checkpointLocked rewrites the entire tree to a new generation and drops
// the previous one; simple, and correct as long as checkpoints are cheap
// relative to write volume, which is the tradeoff this engine is for.
func (s *Sled) checkpointLocked() error {
	newGen := s.generation + 1
	w, err := openWriter(s.store, newGen, false)
	if err != nil {
		return fmt.Errorf("open checkpoint %d: %w", newGen, err)
	}

	var writeErr error
	s.tree.Ascend(func(item btree.Item) bool {
		it := item.(sledItem)
		if _, err := w.Append(SetCommand(it.key, it.value)); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	if writeErr != nil {
		_ = w.Close()
		return fmt.Errorf("write checkpoint %d: %w", newGen, writeErr)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close checkpoint %d: %w", newGen, err)
	}

	oldGen := s.generation
	s.generation = newGen
	if oldGen != 0 {
		_ = s.store.Remove(oldGen)
	}
	return nil
}

func (s *Sled) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Engine:     EngineSled,
		Generation: s.generation,
		KeyCount:   s.tree.Len(),
	}
}

func (s *Sled) Close() error {
	return nil
}
