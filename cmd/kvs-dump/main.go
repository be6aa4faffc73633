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

// kvs-dump writes every live key/value pair of a store directory to an
// xz-compressed, line-delimited JSON snapshot, for migrating a directory
// between engines or backends without replaying the raw log.
package main

import (
	"encoding/json"
	"log"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/ulikunitz/xz"

	"github.com/launix-de/kvs"
	"github.com/launix-de/kvs/backend"
)

func main() {
	var (
		dataDir    = flag.String("data-dir", "./data", "directory holding the log files")
		engineName = flag.String("engine", kvs.EngineKVS, "storage engine: kvs or sled")
		out        = flag.String("out", "", "output file (default: stdout)")
	)
	flag.Parse()

	logStore, err := backend.NewLocalStore(*dataDir)
	if err != nil {
		log.Fatalf("kvs-dump: %v", err)
	}

	var dumper kvs.Dumper
	switch *engineName {
	case kvs.EngineSled:
		dumper, err = kvs.OpenSled(logStore)
	default:
		dumper, err = kvs.Open(logStore, kvs.DefaultOptions())
	}
	if err != nil {
		log.Fatalf("kvs-dump: open store: %v", err)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("kvs-dump: %v", err)
		}
		defer f.Close()
		w = f
	}

	xw, err := xz.NewWriter(w)
	if err != nil {
		log.Fatalf("kvs-dump: %v", err)
	}
	defer xw.Close()

	enc := json.NewEncoder(xw)
	err = dumper.Each(func(key, value string) error {
		return enc.Encode(struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}{key, value})
	})
	if err != nil {
		log.Fatalf("kvs-dump: %v", err)
	}
}
