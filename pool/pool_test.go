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
	"testing"
)

func testAllJobsRun(t *testing.T, p Pool) {
	t.Helper()
	const n = 200
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Submit(func(slot uint64) {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	p.Close()
	if got := count.Load(); got != n {
		t.Fatalf("ran %d jobs, want %d", got, n)
	}
}

func TestNaivePoolRunsAllJobs(t *testing.T) {
	testAllJobsRun(t, New(ShapeNaive, 0))
}

func TestSharedQueuePoolRunsAllJobs(t *testing.T) {
	testAllJobsRun(t, New(ShapeSharedQueue, 4))
}

func TestExternalPoolRunsAllJobs(t *testing.T) {
	testAllJobsRun(t, New(ShapeRayon, 4))
}

func TestSharedQueuePoolSurvivesPanickingJob(t *testing.T) {
	p := New(ShapeSharedQueue, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	p.Submit(func(slot uint64) {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	var ran atomic.Bool
	var wg2 sync.WaitGroup
	wg2.Add(1)
	p.Submit(func(slot uint64) {
		defer wg2.Done()
		ran.Store(true)
	})
	wg2.Wait()
	p.Close()

	if !ran.Load() {
		t.Fatal("pool did not recover after a panicking job")
	}
}
