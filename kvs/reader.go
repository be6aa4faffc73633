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

// ReaderPool is a per-goroutine cache of open generation handles. Readers
// never take a lock against the writer: a pool only ever closes handles
// for generations at or below the watermark it is told about. Read opens a
// handle again when it has none cached, so a LogPointer into a generation
// at or below the watermark still resolves while that file exists.
type ReaderPool struct {
	store     LogStore
	mu        sync.Mutex
	handles   map[uint64]ReadAtCloser
	watermark func() uint64
}

func newReaderPool(store LogStore, watermark func() uint64) *ReaderPool {
	return &ReaderPool{
		store:     store,
		handles:   make(map[uint64]ReadAtCloser),
		watermark: watermark,
	}
}

// Clone returns a fresh ReaderPool over the same store and watermark
// function but with an empty handle cache — one per worker goroutine, so
// that no two goroutines ever race on the same *os.File's read offset
// (there isn't one, since ReadAtCloser is pread-based, but also no two
// goroutines share a map requiring locking on every read).
func (p *ReaderPool) Clone() *ReaderPool {
	return newReaderPool(p.store, p.watermark)
}

func (p *ReaderPool) handleFor(generation uint64) (ReadAtCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.handles[generation]; ok {
		return h, nil
	}
	h, err := p.store.OpenReader(generation)
	if err != nil {
		return nil, fmt.Errorf("open generation %d for reading: %w", generation, err)
	}
	p.handles[generation] = h
	return h, nil
}

// Read resolves ptr to the command it points at.
func (p *ReaderPool) Read(ptr LogPointer) (Command, error) {
	h, err := p.handleFor(ptr.Generation)
	if err != nil {
		return Command{}, err
	}
	buf := make([]byte, ptr.Length)
	if _, err := h.ReadAt(buf, int64(ptr.Offset)); err != nil {
		return Command{}, fmt.Errorf("read generation %d at offset %d: %w", ptr.Generation, ptr.Offset, err)
	}
	return decodeCommand(buf)
}

// CloseStale drops every cached handle at or below the current watermark.
// Called opportunistically (e.g. before each Read) so that file descriptors
// for compacted-away generations are eventually released without a reader
// ever having to coordinate with the compactor directly.
func (p *ReaderPool) CloseStale() {
	wm := p.watermark()
	p.mu.Lock()
	defer p.mu.Unlock()
	for gen, h := range p.handles {
		if gen <= wm {
			_ = h.Close()
			delete(p.handles, gen)
		}
	}
}

func (p *ReaderPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for gen, h := range p.handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.handles, gen)
	}
	return firstErr
}
