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
	"sync/atomic"

	"github.com/JekaMas/workerpool"
)

// externalPool is the --pool rayon shape: a work-stealing pool from a
// third-party scheduler rather than a hand-rolled channel. The flag name
// stays "rayon" for CLI compatibility even though the implementation is
// github.com/JekaMas/workerpool, a Go work-stealing pool in the same spirit.
type externalPool struct {
	wp       *workerpool.WorkerPool
	nextSlot atomic.Uint64
	workers  uint64
}

func newExternalPool(workers int) *externalPool {
	if workers <= 0 {
		workers = 1
	}
	return &externalPool{
		wp:      workerpool.New(workers),
		workers: uint64(workers),
	}
}

func (p *externalPool) Submit(fn func(slot uint64)) {
	slot := p.nextSlot.Add(1) % p.workers
	p.wp.Submit(func() {
		fn(slot)
	})
}

func (p *externalPool) Close() {
	p.wp.StopWait()
}
