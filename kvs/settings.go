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

	units "github.com/docker/go-units"
)

// Options configures a Store. Callers typically build one from CLI flags
// (see cmd/kvs-server) via ParseSize for the human-readable size fields.
type Options struct {
	// CompactionThreshold is the number of uncompacted bytes a directory may
	// accumulate before a compaction pass is triggered.
	CompactionThreshold uint64
	// Fsync additionally calls down to the OS on every append, beyond the
	// mandatory user-space flush.
	Fsync bool
	// ArchiveOldGenerations lz4-compresses a generation's log file before
	// the compactor removes it, instead of discarding it outright. Off by
	// default: an archive that is never pruned would grow forever in place
	// of the compacted generations it replaces.
	ArchiveOldGenerations bool
}

func DefaultOptions() Options {
	return Options{
		CompactionThreshold:   1024 * 1024, // 1MiB
		Fsync:                 false,
		ArchiveOldGenerations: false,
	}
}

// ParseSize turns a human-readable size ("1MiB", "512kB", "2G") into a byte
// count via docker/go-units.
func ParseSize(s string) (uint64, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("parse size %q: negative size", s)
	}
	return uint64(n), nil
}
