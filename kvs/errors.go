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

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", err) so
// errors.Is/errors.As keep working across package boundaries within a
// process (engine -> server). Over the wire only the error's text reaches
// the client.
var (
	ErrKeyNotFound           = errors.New("Key not found")
	ErrUnexpectedCommandType = errors.New("unexpected command type")
	ErrCorruptLog            = errors.New("corrupt log")
	ErrEngineMismatch        = errors.New("engine mismatch")
	ErrConcurrency           = errors.New("concurrency error")
)
