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
	"encoding/json"
	"fmt"
	"io"
)

// CommandKind tags a log record as a Set or a Remove.
type CommandKind uint8

const (
	CommandSet CommandKind = iota
	CommandRemove
)

func (k CommandKind) String() string {
	if k == CommandSet {
		return "set"
	}
	return "remove"
}

// Command is the tagged union of a Set{key,value} or a Remove{key}. It is
// its own wire and log format: encoded as one JSON object, which is
// self-delimiting under streaming decode.
type Command struct {
	Kind  CommandKind `json:"kind"`
	Key   string      `json:"key"`
	Value string      `json:"value,omitempty"`
}

func SetCommand(key, value string) Command {
	return Command{Kind: CommandSet, Key: key, Value: value}
}

func RemoveCommand(key string) Command {
	return Command{Kind: CommandRemove, Key: key}
}

// encodeCommand serializes a command to its on-disk form.
func encodeCommand(cmd Command) ([]byte, error) {
	return json.Marshal(cmd)
}

// replayLog streams every command in r, calling fn with the byte range it
// occupied. A stream that ends mid-record is a corruption error, never a
// silent truncation.
func replayLog(r io.Reader, fn func(cmd Command, offset, length uint64) error) error {
	dec := json.NewDecoder(r)
	var offset int64
	for {
		var cmd Command
		err := dec.Decode(&cmd)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptLog, err)
		}
		next := dec.InputOffset()
		if err := fn(cmd, uint64(offset), uint64(next-offset)); err != nil {
			return err
		}
		offset = next
	}
}

// decodeCommand decodes exactly one record from a byte range read off disk.
func decodeCommand(raw []byte) (Command, error) {
	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	return cmd, nil
}
