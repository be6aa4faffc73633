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
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIndexInsertGetRemove(t *testing.T) {
	ix := newIndex()

	if _, ok := ix.Get("a"); ok {
		t.Fatal("Get on empty index reported found")
	}

	ptr := LogPointer{Generation: 1, Offset: 0, Length: 10}
	if _, had := ix.Insert("a", ptr); had {
		t.Fatal("first Insert reported an old value")
	}

	got, ok := ix.Get("a")
	if !ok || got != ptr {
		t.Fatalf("Get(a) = (%v, %v), want (%v, true)", got, ok, ptr)
	}

	ptr2 := LogPointer{Generation: 2, Offset: 10, Length: 5}
	old, had := ix.Insert("a", ptr2)
	if !had || old != ptr {
		t.Fatalf("second Insert returned (%v, %v), want (%v, true)", old, had, ptr)
	}

	removed, had := ix.Remove("a")
	if !had || removed != ptr2 {
		t.Fatalf("Remove(a) = (%v, %v), want (%v, true)", removed, had, ptr2)
	}
	if _, ok := ix.Get("a"); ok {
		t.Fatal("Get after Remove reported found")
	}
}

func TestIndexLenAndIter(t *testing.T) {
	ix := newIndex()
	keys := []string{"a", "b", "c"}
	for i, k := range keys {
		ix.Insert(k, LogPointer{Generation: uint64(i)})
	}
	if got := ix.Len(); got != len(keys) {
		t.Fatalf("Len() = %d, want %d", got, len(keys))
	}

	seen := make(map[string]bool)
	for _, item := range ix.Iter() {
		seen[item.Key] = true
	}
	for _, k := range keys {
		if !seen[k] {
			t.Fatalf("Iter() missing key %q", k)
		}
	}
}

func TestIndexIterMatchesInserted(t *testing.T) {
	ix := newIndex()
	want := []IndexItem{
		{Key: "a", Pointer: LogPointer{Generation: 1, Offset: 0, Length: 4}},
		{Key: "b", Pointer: LogPointer{Generation: 1, Offset: 4, Length: 6}},
		{Key: "c", Pointer: LogPointer{Generation: 2, Offset: 0, Length: 9}},
	}
	for _, item := range want {
		ix.Insert(item.Key, item.Pointer)
	}

	got := ix.Iter()
	sort.Slice(got, func(i, j int) bool { return got[i].Key < got[j].Key })

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Iter() mismatch (-want +got):\n%s", diff)
	}
}
