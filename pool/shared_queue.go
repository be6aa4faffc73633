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
	"log"
	"sync"

	"github.com/jtolds/gls"
)

var glsMgr = gls.NewContextManager()

// sharedQueuePool runs a fixed number of worker goroutines reading off one
// job channel, each one tagged (via jtolds/gls) with the slot it occupies
// so a panic's log line can say which worker crashed without threading a
// context.Context through every call in between. A job that panics is
// recovered and logged, and its worker goes on to the next job on the same
// slot, so the pool never shrinks.
type sharedQueuePool struct {
	jobs chan func(slot uint64)
	wg   sync.WaitGroup
}

func newSharedQueuePool(workers int) *sharedQueuePool {
	if workers <= 0 {
		workers = 1
	}
	p := &sharedQueuePool{jobs: make(chan func(slot uint64))}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.runWorker(uint64(i))
	}
	return p
}

func (p *sharedQueuePool) runWorker(slot uint64) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.runJob(slot, job)
	}
}

// runJob executes one job, tagging the goroutine-local slot via gls. If the
// job panics, the panic is logged and runJob returns, letting the worker
// loop continue.
func (p *sharedQueuePool) runJob(slot uint64, job func(slot uint64)) {
	defer func() {
		if r := recover(); r != nil {
			var tagged uint64
			if v, ok := glsMgr.GetValue("slot"); ok {
				tagged = v.(uint64)
			}
			log.Printf("kvs: worker slot %d panicked: %v", tagged, r)
		}
	}()
	glsMgr.SetValues(gls.Values{"slot": slot}, func() {
		job(slot)
	})
}

func (p *sharedQueuePool) Submit(fn func(slot uint64)) {
	p.jobs <- fn
}

func (p *sharedQueuePool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
