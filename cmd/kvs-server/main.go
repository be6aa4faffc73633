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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/launix-de/kvs"
	"github.com/launix-de/kvs/backend"
	"github.com/launix-de/kvs/pool"
	"github.com/launix-de/kvs/protocol"
	"github.com/launix-de/kvs/server"
)

func main() {
	var (
		addr           = flag.String("addr", "127.0.0.1:4000", "address to listen on")
		adminAddr      = flag.String("admin-addr", "", "address for the HTTP/websocket status endpoint (empty disables it)")
		dataDir        = flag.String("data-dir", "./data", "directory holding the log files (local backend only)")
		backendName    = flag.String("backend", "local", "storage backend: local, s3, ceph")
		engineName     = flag.String("engine", kvs.EngineKVS, "storage engine: kvs (log-structured) or sled (btree checkpoint)")
		poolShape      = flag.String("pool", string(pool.ShapeSharedQueue), "worker pool shape: naive, shared_queue, rayon")
		poolWorkers    = flag.Int("pool-workers", 8, "worker count for shared_queue/rayon pools")
		compactionSize = flag.String("compaction-threshold", "1MiB", "uncompacted bytes before a compaction pass runs")
		fsync          = flag.Bool("fsync", false, "fsync every write in addition to flushing")
		archive        = flag.Bool("archive", false, "lz4-compress a generation's log file instead of discarding it when the compactor removes it")
		maxMessageSize = flag.Uint64("max-message-size", protocol.DefaultMaxMessageSize, "maximum frame size in bytes")

		s3Bucket   = flag.String("s3-bucket", "", "S3 bucket (backend=s3)")
		s3Prefix   = flag.String("s3-prefix", "", "S3 key prefix (backend=s3)")
		s3Region   = flag.String("s3-region", "", "S3 region (backend=s3)")
		s3Endpoint = flag.String("s3-endpoint", "", "S3-compatible endpoint, e.g. for MinIO (backend=s3)")

		cephPool = flag.String("ceph-pool", "", "RADOS pool name (backend=ceph)")
		cephUser = flag.String("ceph-user", "client.admin", "RADOS user (backend=ceph)")
	)
	flag.Parse()

	threshold, err := kvs.ParseSize(*compactionSize)
	if err != nil {
		log.Fatalf("kvs-server: %v", err)
	}

	logStore, err := openBackend(*backendName, *dataDir, s3Config{
		bucket: *s3Bucket, prefix: *s3Prefix, region: *s3Region, endpoint: *s3Endpoint,
	}, cephConfig{pool: *cephPool, user: *cephUser})
	if err != nil {
		log.Fatalf("kvs-server: %v", err)
	}

	opts := kvs.Options{CompactionThreshold: threshold, Fsync: *fsync, ArchiveOldGenerations: *archive}

	if *backendName == "local" {
		stopWatch, err := kvs.WatchDirectory(*dataDir)
		if err != nil {
			log.Printf("kvs-server: directory watch disabled: %v", err)
		} else {
			defer stopWatch()
		}
	}

	var engine kvs.Engine
	switch *engineName {
	case kvs.EngineSled:
		engine, err = kvs.OpenSled(logStore)
	default:
		engine, err = kvs.Open(logStore, opts)
	}
	if err != nil {
		log.Fatalf("kvs-server: open store: %v", err)
	}
	kvs.RegisterShutdownHook(engine)

	srv := server.New(engine, server.Options{
		Addr:           *addr,
		AdminAddr:      *adminAddr,
		PoolShape:      pool.Shape(*poolShape),
		PoolWorkers:    *poolWorkers,
		MaxMessageSize: *maxMessageSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("kvs-server: listening on %s (engine=%s backend=%s pool=%s)", *addr, *engineName, *backendName, *poolShape)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("kvs-server: %v", err)
	}
}

type s3Config struct {
	bucket, prefix, region, endpoint string
}

type cephConfig struct {
	pool, user string
}

func openBackend(name, dataDir string, s3cfg s3Config, cephcfg cephConfig) (kvs.LogStore, error) {
	switch name {
	case "s3":
		if s3cfg.bucket == "" {
			return nil, fmt.Errorf("backend=s3 requires --s3-bucket")
		}
		return backend.NewS3Store(backend.S3Config{
			Bucket:         s3cfg.bucket,
			Prefix:         s3cfg.prefix,
			Region:         s3cfg.region,
			Endpoint:       s3cfg.endpoint,
			ForcePathStyle: s3cfg.endpoint != "",
		}), nil
	case "ceph":
		if cephcfg.pool == "" {
			return nil, fmt.Errorf("backend=ceph requires --ceph-pool")
		}
		return backend.NewCephStore(backend.CephConfig{Pool: cephcfg.pool, UserName: cephcfg.user})
	default:
		return backend.NewLocalStore(dataDir)
	}
}
