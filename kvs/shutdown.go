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
	"log"

	"github.com/dc0d/onexit"
)

// RegisterShutdownHook flushes and closes engine on SIGINT/SIGTERM as well
// as on a clean process exit, so a killed server never loses the tail of
// its write buffer.
func RegisterShutdownHook(engine Engine) {
	onexit.Register(func() {
		if err := engine.Close(); err != nil {
			log.Printf("kvs: error closing store during shutdown: %v", err)
		}
	})
}
