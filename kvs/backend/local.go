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

// Package backend provides the LogStore implementations plugged into
// kvs.Open: local disk (the default, grounded on
// storage/persistence-files.go's FileStorage), S3 and Ceph (grounded on
// storage/persistence-s3.go and storage/persistence-ceph.go).
package backend

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/launix-de/kvs"
)

const (
	logSuffix     = ".log"
	archiveSuffix = ".log.lz4"
	markerName    = "ENGINE"
)

// LocalStore is the default LogStore: one "<generation>.log" file per
// generation inside a directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) genPath(generation uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(generation, 10)+logSuffix)
}

func (s *LocalStore) archivePath(generation uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(generation, 10)+archiveSuffix)
}

func (s *LocalStore) ListGenerations() ([]uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", s.dir, err)
	}
	var gens []uint64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, logSuffix) || strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		numPart := strings.TrimSuffix(name, logSuffix)
		gen, err := strconv.ParseUint(numPart, 10, 64)
		if err != nil {
			continue // not one of ours
		}
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

func (s *LocalStore) Size(generation uint64) (uint64, error) {
	fi, err := os.Stat(s.genPath(generation))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat generation %d: %w", generation, err)
	}
	return uint64(fi.Size()), nil
}

func (s *LocalStore) OpenAppend(generation uint64) (kvs.AppendFile, error) {
	f, err := os.OpenFile(s.genPath(generation), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open generation %d for append: %w", generation, err)
	}
	return &localAppendFile{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *LocalStore) OpenArchive(generation uint64) (kvs.AppendFile, error) {
	f, err := os.OpenFile(s.archivePath(generation), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return nil, fmt.Errorf("open archive %d: %w", generation, err)
	}
	return &localAppendFile{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *LocalStore) OpenReader(generation uint64) (kvs.ReadAtCloser, error) {
	f, err := os.Open(s.genPath(generation))
	if err != nil {
		return nil, fmt.Errorf("open generation %d for reading: %w", generation, err)
	}
	return f, nil
}

func (s *LocalStore) Remove(generation uint64) error {
	if err := os.Remove(s.genPath(generation)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove generation %d: %w", generation, err)
	}
	return nil
}

func (s *LocalStore) ReadMarker() (string, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, markerName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read engine marker: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *LocalStore) WriteMarker(engine string) error {
	if err := os.WriteFile(filepath.Join(s.dir, markerName), []byte(engine), 0640); err != nil {
		return fmt.Errorf("write engine marker: %w", err)
	}
	return nil
}

// localAppendFile wraps a buffered *os.File, adding the explicit Flush step
// kvs.Writer relies on and an opt-in Fdatasync for durability beyond
// flush-on-write (golang.org/x/sys/unix, rather than the coarser
// (*os.File).Sync, since the log directory's metadata doesn't need
// syncing on every write, only the data).
type localAppendFile struct {
	f *os.File
	w *bufio.Writer
}

func (a *localAppendFile) Write(p []byte) (int, error) { return a.w.Write(p) }
func (a *localAppendFile) Flush() error                { return a.w.Flush() }
func (a *localAppendFile) Sync() error                 { return unix.Fdatasync(int(a.f.Fd())) }
func (a *localAppendFile) Close() error {
	if err := a.w.Flush(); err != nil {
		_ = a.f.Close()
		return err
	}
	return a.f.Close()
}
