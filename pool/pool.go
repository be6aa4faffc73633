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

// Package pool implements three worker pool shapes selectable behind
// --pool: naive (spawn one goroutine per job), shared_queue (a fixed
// worker count reading off one channel), and rayon (an external
// work-stealing pool). "rayon" here just names the flag value; it selects
// the Go pool implementation wrapping an external work-stealing scheduler.
package pool

// Pool runs jobs, optionally handing each one a Slot it can use to pick a
// private resource (e.g. a kvs.ReaderPool) so that jobs on different slots
// never contend on the same cached file handles. Only shared_queue ties a
// slot to one worker; naive and rayon hand out slots round-robin, so two
// concurrent jobs can be given the same slot.
type Pool interface {
	// Submit schedules fn to run, eventually, on some worker. fn receives
	// the slot number it was assigned.
	Submit(fn func(slot uint64))
	// Close waits for in-flight jobs to finish and releases any workers.
	Close()
}

// Shape is one of the three pool kinds selectable via --pool.
type Shape string

const (
	ShapeNaive       Shape = "naive"
	ShapeSharedQueue Shape = "shared_queue"
	ShapeRayon       Shape = "rayon"
)

// New constructs the Pool for shape, sized to workers goroutines/slots
// where the shape uses a fixed worker count (shared_queue, rayon); naive
// ignores workers since it spawns unboundedly.
func New(shape Shape, workers int) Pool {
	switch shape {
	case ShapeSharedQueue:
		return newSharedQueuePool(workers)
	case ShapeRayon:
		return newExternalPool(workers)
	default:
		return newNaivePool()
	}
}
