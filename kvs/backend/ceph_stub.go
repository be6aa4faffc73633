//go:build !ceph

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

import "github.com/launix-de/kvs"

// CephConfig is a stub when Ceph support is not compiled in.
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

// NewCephStore panics when Ceph support is not compiled in. Build with
// -tags=ceph to enable it.
func NewCephStore(cfg CephConfig) (*CephStore, error) {
	panic("ceph support not compiled in. Build with: go build -tags=ceph")
}

// CephStore is an uninstantiable placeholder type outside of -tags=ceph
// builds. It still satisfies kvs.LogStore so code that references
// backend.CephStore compiles either way; every method panics since
// NewCephStore never returns a live instance without -tags=ceph.
type CephStore struct{}

func (*CephStore) ListGenerations() ([]uint64, error)         { panic(cephDisabledMsg) }
func (*CephStore) Size(uint64) (uint64, error)                { panic(cephDisabledMsg) }
func (*CephStore) OpenAppend(uint64) (kvs.AppendFile, error)   { panic(cephDisabledMsg) }
func (*CephStore) OpenArchive(uint64) (kvs.AppendFile, error)  { panic(cephDisabledMsg) }
func (*CephStore) OpenReader(uint64) (kvs.ReadAtCloser, error) { panic(cephDisabledMsg) }
func (*CephStore) Remove(uint64) error                         { panic(cephDisabledMsg) }
func (*CephStore) ReadMarker() (string, error)                 { panic(cephDisabledMsg) }
func (*CephStore) WriteMarker(string) error                    { panic(cephDisabledMsg) }

const cephDisabledMsg = "ceph support not compiled in. Build with: go build -tags=ceph"
