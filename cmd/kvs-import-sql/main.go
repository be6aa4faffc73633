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

// kvs-import-sql bulk-loads key/value pairs out of an existing MySQL or
// Postgres table into a kvs store directory — the supplemented migration
// path for operators moving off a relational side-table into this engine.
package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	flag "github.com/spf13/pflag"

	"github.com/launix-de/kvs"
	"github.com/launix-de/kvs/backend"
)

func main() {
	var (
		dataDir   = flag.String("data-dir", "./data", "destination directory for the kvs store")
		driver    = flag.String("driver", "mysql", "source SQL driver: mysql or postgres")
		dsn       = flag.String("dsn", "", "source data source name")
		table     = flag.String("table", "", "source table name")
		keyCol    = flag.String("key-column", "k", "column holding the key")
		valueCol  = flag.String("value-column", "v", "column holding the value")
		batchSize = flag.Int("batch-size", 1000, "rows fetched per query batch, via LIMIT/OFFSET paging")
	)
	flag.Parse()

	if *dsn == "" || *table == "" {
		log.Fatal("kvs-import-sql: --dsn and --table are required")
	}

	sqlDriver := *driver
	if sqlDriver == "postgres" || sqlDriver == "postgresql" {
		sqlDriver = "postgres"
	} else {
		sqlDriver = "mysql"
	}

	db, err := sql.Open(sqlDriver, *dsn)
	if err != nil {
		log.Fatalf("kvs-import-sql: open %s: %v", sqlDriver, err)
	}
	defer db.Close()

	logStore, err := backend.NewLocalStore(*dataDir)
	if err != nil {
		log.Fatalf("kvs-import-sql: %v", err)
	}
	store, err := kvs.Open(logStore, kvs.DefaultOptions())
	if err != nil {
		log.Fatalf("kvs-import-sql: open store: %v", err)
	}
	defer store.Close()

	var imported int
	for offset := 0; ; offset += *batchSize {
		query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s LIMIT %d OFFSET %d",
			*keyCol, *valueCol, *table, *keyCol, *batchSize, offset)
		rows, err := db.Query(query)
		if err != nil {
			log.Fatalf("kvs-import-sql: query: %v", err)
		}

		rowsInBatch := 0
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				rows.Close()
				log.Fatalf("kvs-import-sql: scan: %v", err)
			}
			if err := store.Set(key, value); err != nil {
				rows.Close()
				log.Fatalf("kvs-import-sql: set %q: %v", key, err)
			}
			rowsInBatch++
			imported++
		}
		rows.Close()
		if rowsInBatch == 0 {
			break
		}
	}

	log.Printf("kvs-import-sql: imported %d rows from %s.%s", imported, sqlDriver, *table)
}
