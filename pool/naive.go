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

package pool

import (
	"sync"
	"sync/atomic"
)

// naiveReaderSlots bounds the slot numbers naivePool hands out. Jobs still
// spawn one goroutine each, unbounded, but the slot space wraps so a caller
// keying a per-slot resource (kvs.Store's per-slot ReaderPool cache) off it
// does not accumulate one entry per job forever on a long-running server.
const naiveReaderSlots = 64

// naivePool spawns one goroutine per job, the simplest of the pool shapes.
// Jobs round-robin over a fixed slot space so two jobs running at the same
// moment are unlikely to collide, without keeping a slot reserved per job
// forever.
type naivePool struct {
	wg       sync.WaitGroup
	nextSlot atomic.Uint64
}

func newNaivePool() *naivePool {
	return &naivePool{}
}

func (p *naivePool) Submit(fn func(slot uint64)) {
	slot := p.nextSlot.Add(1) % naiveReaderSlots
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(slot)
	}()
}

func (p *naivePool) Close() {
	p.wg.Wait()
}
