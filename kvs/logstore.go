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

import "io"

// LogStore is the storage backend holding the directory of <generation>.log
// files plus the engine marker: a flat append-only log of command records.
// Implementations live in kvs/backend: local disk (the default), S3, and
// Ceph.
type LogStore interface {
	// ListGenerations returns every generation currently on the backend, in
	// ascending order.
	ListGenerations() ([]uint64, error)
	// Size returns the number of bytes written to a generation so far.
	Size(generation uint64) (uint64, error)
	// OpenAppend returns a handle positioned for appending to generation,
	// creating it if it does not exist yet.
	OpenAppend(generation uint64) (AppendFile, error)
	// OpenReader returns a random-access read-only handle onto generation.
	OpenReader(generation uint64) (ReadAtCloser, error)
	// Remove deletes a generation's log file entirely.
	Remove(generation uint64) error

	// OpenArchive returns an append handle for a compressed, out-of-band
	// copy of a generation kept for disaster recovery after compaction.
	// Archives live outside the namespace ListGenerations walks, so they
	// are never mistaken for live log files during replay.
	OpenArchive(generation uint64) (AppendFile, error)

	// ReadMarker returns the engine name ("kvs" or "sled") last recorded for
	// this directory, or "" if no marker has been written yet.
	ReadMarker() (string, error)
	// WriteMarker records which engine owns this directory.
	WriteMarker(engine string) error
}

// AppendFile is the writer side of one generation's log file: a single
// syscall-visible append plus an explicit user-space flush.
type AppendFile interface {
	io.Writer
	// Flush pushes the buffered writer's contents to the OS; mandatory
	// after every append before the caller is told the write completed.
	Flush() error
	// Sync additionally asks the OS to persist to stable storage; only
	// called when durability beyond flush-on-write was requested.
	Sync() error
	Close() error
}

// ReadAtCloser is the reader side of one generation's log file.
type ReadAtCloser interface {
	io.ReaderAt
	Close() error
}
