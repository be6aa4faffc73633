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

package main

import (
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/launix-de/kvs/client"
	"github.com/launix-de/kvs/protocol"
)

func main() {
	var (
		addr           = flag.String("addr", "127.0.0.1:4000", "kvs-server address")
		maxMessageSize = flag.Uint64("max-message-size", protocol.DefaultMaxMessageSize, "maximum frame size in bytes")
	)
	flag.Parse()
	args := flag.Args()

	c, err := client.Dial(*addr, *maxMessageSize)
	if err != nil {
		log.Fatalf("kvs-client: %v", err)
	}
	defer c.Close()

	if len(args) == 0 {
		if err := client.RunREPL(c); err != nil {
			log.Fatalf("kvs-client: %v", err)
		}
		return
	}

	switch args[0] {
	case "get":
		if len(args) != 2 {
			log.Fatal("usage: kvs-client get KEY")
		}
		value, found, err := c.Get(args[1])
		if err != nil {
			log.Fatalf("kvs-client: %v", err)
		}
		if !found {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(value)
	case "set":
		if len(args) != 3 {
			log.Fatal("usage: kvs-client set KEY VALUE")
		}
		if err := c.Set(args[1], args[2]); err != nil {
			log.Fatalf("kvs-client: %v", err)
		}
	case "rm":
		if len(args) != 2 {
			log.Fatal("usage: kvs-client rm KEY")
		}
		if err := c.Remove(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		log.Fatalf("kvs-client: unknown command %q", args[0])
	}
}
