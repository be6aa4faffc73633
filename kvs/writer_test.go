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

import "testing"

func TestWriterAppendAdvancesOffsets(t *testing.T) {
	store := newMemStore()
	w, err := openWriter(store, 1, false)
	if err != nil {
		t.Fatalf("openWriter: %v", err)
	}

	p1, err := w.Append(SetCommand("a", "1"))
	if err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if p1.Generation != 1 || p1.Offset != 0 {
		t.Fatalf("first pointer = %+v, want generation=1 offset=0", p1)
	}

	p2, err := w.Append(SetCommand("b", "2"))
	if err != nil {
		t.Fatalf("Append 2: %v", err)
	}
	if p2.Offset != p1.Offset+p1.Length {
		t.Fatalf("second pointer offset = %d, want %d", p2.Offset, p1.Offset+p1.Length)
	}
}

func TestWriterRefreshSwitchesGeneration(t *testing.T) {
	store := newMemStore()
	w, err := openWriter(store, 1, false)
	if err != nil {
		t.Fatalf("openWriter: %v", err)
	}
	if _, err := w.Append(SetCommand("a", "1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := w.Refresh(2); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if w.CurrentGeneration() != 2 {
		t.Fatalf("CurrentGeneration() = %d, want 2", w.CurrentGeneration())
	}

	p, err := w.Append(SetCommand("b", "2"))
	if err != nil {
		t.Fatalf("Append after refresh: %v", err)
	}
	if p.Generation != 2 || p.Offset != 0 {
		t.Fatalf("pointer after refresh = %+v, want generation=2 offset=0", p)
	}
}
