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
	"bytes"
	"io"
	"sort"
	"sync"
)

// memStore is an in-memory LogStore used only by this package's own tests,
// so they exercise the Writer/ReaderPool/Index/compactor wiring without
// touching the filesystem.
type memStore struct {
	mu     sync.Mutex
	files  map[uint64]*bytes.Buffer
	marker string
}

func newMemStore() *memStore {
	return &memStore{files: make(map[uint64]*bytes.Buffer)}
}

func (m *memStore) ListGenerations() ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gens := make([]uint64, 0, len(m.files))
	for g := range m.files {
		gens = append(gens, g)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

func (m *memStore) Size(generation uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.files[generation]; ok {
		return uint64(buf.Len()), nil
	}
	return 0, nil
}

func (m *memStore) OpenAppend(generation uint64) (AppendFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[generation]; !ok {
		m.files[generation] = &bytes.Buffer{}
	}
	return &memAppendFile{m: m, generation: generation}, nil
}

func (m *memStore) OpenArchive(generation uint64) (AppendFile, error) {
	return m.OpenAppend(generation | (1 << 32))
}

func (m *memStore) OpenReader(generation uint64) (ReadAtCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[generation]; !ok {
		m.files[generation] = &bytes.Buffer{}
	}
	return &memReader{m: m, generation: generation}, nil
}

func (m *memStore) Remove(generation uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, generation)
	return nil
}

func (m *memStore) ReadMarker() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marker, nil
}

func (m *memStore) WriteMarker(engine string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = engine
	return nil
}

type memAppendFile struct {
	m          *memStore
	generation uint64
}

func (a *memAppendFile) Write(p []byte) (int, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	return a.m.files[a.generation].Write(p)
}

func (a *memAppendFile) Flush() error { return nil }
func (a *memAppendFile) Sync() error  { return nil }
func (a *memAppendFile) Close() error { return nil }

type memReader struct {
	m          *memStore
	generation uint64
}

func (r *memReader) ReadAt(p []byte, off int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	data := r.m.files[r.generation].Bytes()
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *memReader) Close() error { return nil }
