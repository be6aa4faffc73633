//go:build ceph

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

package backend

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/ceph/go-ceph/rados"

	"github.com/launix-de/kvs"
)

// CephConfig holds the RADOS connection parameters for a Ceph-backed store.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

// CephStore is a LogStore backed by a RADOS pool. Objects support
// write-at-offset but not append, so generations are written with a
// WriteOp at the tracked logical offset.
type CephStore struct {
	cfg CephConfig

	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
}

func NewCephStore(cfg CephConfig) (*CephStore, error) {
	s := &CephStore{cfg: cfg}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CephStore) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ioctx != nil {
		return nil
	}

	conn, err := rados.NewConnWithClusterAndUser(s.cfg.ClusterName, s.cfg.UserName)
	if err != nil {
		return fmt.Errorf("connect to ceph cluster %s: %w", s.cfg.ClusterName, err)
	}
	if s.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(s.cfg.ConfFile); err != nil {
			return fmt.Errorf("read ceph conf %s: %w", s.cfg.ConfFile, err)
		}
	}
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	ioctx, err := conn.OpenIOContext(s.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return fmt.Errorf("open pool %s: %w", s.cfg.Pool, err)
	}

	s.conn = conn
	s.ioctx = ioctx
	return nil
}

func (s *CephStore) obj(name string) string {
	if s.cfg.Prefix == "" {
		return name
	}
	return s.cfg.Prefix + "/" + name
}

func (s *CephStore) genObj(generation uint64) string {
	return s.obj(strconv.FormatUint(generation, 10) + logSuffix)
}

func (s *CephStore) archiveObj(generation uint64) string {
	return s.obj(strconv.FormatUint(generation, 10) + archiveSuffix)
}

func (s *CephStore) ListGenerations() ([]uint64, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	iter, err := s.ioctx.Iter()
	if err != nil {
		return nil, fmt.Errorf("iterate pool %s: %w", s.cfg.Pool, err)
	}
	defer iter.Close()

	prefix := s.obj("")
	var gens []uint64
	for iter.Next() {
		name := iter.Value()
		trimmed := name
		if prefix != "" {
			if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
				continue
			}
			trimmed = name[len(prefix):]
		}
		if len(trimmed) < len(logSuffix) || trimmed[len(trimmed)-len(logSuffix):] != logSuffix {
			continue
		}
		if len(trimmed) >= len(archiveSuffix) && trimmed[len(trimmed)-len(archiveSuffix):] == archiveSuffix {
			continue
		}
		numPart := trimmed[:len(trimmed)-len(logSuffix)]
		gen, err := strconv.ParseUint(numPart, 10, 64)
		if err != nil {
			continue
		}
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

func (s *CephStore) Size(generation uint64) (uint64, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	stat, err := s.ioctx.Stat(s.genObj(generation))
	if err != nil {
		return 0, nil
	}
	return stat.Size, nil
}

func (s *CephStore) OpenAppend(generation uint64) (kvs.AppendFile, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	obj := s.genObj(generation)
	var offset uint64
	if stat, err := s.ioctx.Stat(obj); err == nil {
		offset = stat.Size
	}
	return &cephAppendFile{ioctx: s.ioctx, obj: obj, offset: offset}, nil
}

func (s *CephStore) OpenArchive(generation uint64) (kvs.AppendFile, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	obj := s.archiveObj(generation)
	_ = s.ioctx.Truncate(obj, 0)
	return &cephAppendFile{ioctx: s.ioctx, obj: obj}, nil
}

func (s *CephStore) OpenReader(generation uint64) (kvs.ReadAtCloser, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return &cephReadAtCloser{ioctx: s.ioctx, obj: s.genObj(generation)}, nil
}

func (s *CephStore) Remove(generation uint64) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.ioctx.Delete(s.genObj(generation)); err != nil {
		return fmt.Errorf("delete generation %d: %w", generation, err)
	}
	return nil
}

func (s *CephStore) ReadMarker() (string, error) {
	if err := s.ensureOpen(); err != nil {
		return "", err
	}
	obj := s.obj(markerName)
	stat, err := s.ioctx.Stat(obj)
	if err != nil {
		return "", nil
	}
	data := make([]byte, stat.Size)
	if _, err := s.ioctx.Read(obj, data, 0); err != nil {
		return "", fmt.Errorf("read engine marker: %w", err)
	}
	return string(data), nil
}

func (s *CephStore) WriteMarker(engine string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.ioctx.WriteFull(s.obj(markerName), []byte(engine)); err != nil {
		return fmt.Errorf("write engine marker: %w", err)
	}
	return nil
}

// cephAppendFile issues one WriteOp per Flush at the tracked logical
// offset, emulating append since RADOS objects have no append call.
type cephAppendFile struct {
	ioctx  *rados.IOContext
	obj    string
	offset uint64
	buf    []byte
}

func (w *cephAppendFile) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *cephAppendFile) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	op := rados.CreateWriteOp()
	defer op.Release()
	op.Write(w.buf, w.offset)
	if err := op.Operate(w.ioctx, w.obj, rados.OperationNoFlag); err != nil {
		return fmt.Errorf("write object %s at offset %d: %w", w.obj, w.offset, err)
	}
	w.offset += uint64(len(w.buf))
	w.buf = w.buf[:0]
	return nil
}

// Sync is a no-op: RADOS has no client-side fsync, durability is a function
// of pool replication acknowledged by Operate in Flush.
func (w *cephAppendFile) Sync() error { return nil }

func (w *cephAppendFile) Close() error { return w.Flush() }

type cephReadAtCloser struct {
	ioctx *rados.IOContext
	obj   string
}

func (r *cephReadAtCloser) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.ioctx.Read(r.obj, p, uint64(off))
	if err != nil {
		return n, fmt.Errorf("read object %s at offset %d: %w", r.obj, off, err)
	}
	// io.ReaderAt requires a non-nil error whenever n < len(p); go-ceph's
	// ioctx.Read returns nil error on a short read at the object's end, so
	// that case has to be turned into io.EOF here for callers (kvs.ReaderPool)
	// that rely on the contract to detect a truncated read instead of
	// silently decoding a short buffer.
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *cephReadAtCloser) Close() error { return nil }
