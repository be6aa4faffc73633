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
	"fmt"

	"github.com/google/btree"
)

// Dumper is implemented by every Engine that can stream its full contents;
// cmd/kvs-dump uses it to write a portable snapshot regardless of which
// engine produced it.
type Dumper interface {
	Each(fn func(key, value string) error) error
}

// Each visits every live key in key order, in a single snapshot consistent
// with Index.Iter's copy-on-write guarantee.
func (s *Store) Each(fn func(key, value string) error) error {
	rp := s.ReaderForSlot(0)
	for _, item := range s.index.Iter() {
		cmd, err := rp.Read(item.Pointer)
		if err != nil {
			return fmt.Errorf("read %q: %w", item.Key, err)
		}
		if err := fn(item.Key, cmd.Value); err != nil {
			return err
		}
	}
	return nil
}

// Each visits every key currently held by the B-tree.
func (s *Sled) Each(fn func(key, value string) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var err error
	s.tree.Ascend(func(item btree.Item) bool {
		it := item.(sledItem)
		if e := fn(it.key, it.value); e != nil {
			err = e
			return false
		}
		return true
	})
	return err
}
