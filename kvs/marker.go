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

import "fmt"

// EngineKVS and EngineSled are the two marker values a directory can carry.
// A directory is permanently committed to one engine the first time it is
// opened: hard failure on mismatch rather than silent migration.
const (
	EngineKVS  = "kvs"
	EngineSled = "sled"
)

// checkOrWriteMarker enforces that a store directory is only ever opened by
// one engine implementation. An empty marker means the directory is new:
// the marker is written and ownership established. A marker that disagrees
// with engine is an irrecoverable configuration error — the caller chose
// the wrong --engine flag for this directory.
func checkOrWriteMarker(store LogStore, engine string) error {
	existing, err := store.ReadMarker()
	if err != nil {
		return fmt.Errorf("read engine marker: %w", err)
	}
	if existing == "" {
		if err := store.WriteMarker(engine); err != nil {
			return fmt.Errorf("write engine marker: %w", err)
		}
		return nil
	}
	if existing != engine {
		return fmt.Errorf("%w: directory was created with engine %q, cannot open with engine %q", ErrEngineMismatch, existing, engine)
	}
	return nil
}
