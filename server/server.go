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

// Package server implements the kvs-server network loop: accept
// connections, frame requests with package protocol, dispatch each one to
// a pool.Pool worker, and apply it to a kvs.Engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/launix-de/kvs"
	"github.com/launix-de/kvs/pool"
	"github.com/launix-de/kvs/protocol"
)

// Options configures a Server.
type Options struct {
	Addr           string
	AdminAddr      string // empty disables the admin/status endpoint
	PoolShape      pool.Shape
	PoolWorkers    int
	MaxMessageSize uint64
}

// Server accepts client connections and serves them against engine.
type Server struct {
	opts   Options
	engine kvs.Engine
	pool   pool.Pool

	addrReady chan struct{}
	addr      string
}

func New(engine kvs.Engine, opts Options) *Server {
	return &Server{
		engine:    engine,
		opts:      opts,
		pool:      pool.New(opts.PoolShape, opts.PoolWorkers),
		addrReady: make(chan struct{}),
	}
}

// Addr blocks until Run has bound its listener and returns its address.
// Useful for tests that start a server on "host:0" and need the
// OS-assigned port.
func (s *Server) Addr() string {
	<-s.addrReady
	return s.addr
}

// Run listens on opts.Addr (and opts.AdminAddr, if set) until ctx is
// canceled, using an errgroup so that either listener failing brings down
// the other cleanly.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	s.addr = listener.Addr().String()
	close(s.addrReady)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		_ = listener.Close()
		return nil
	})

	g.Go(func() error {
		return s.acceptLoop(listener)
	})

	if s.opts.AdminAddr != "" {
		admin := NewAdminServer(s.engine, s.opts.AdminAddr)
		g.Go(func() error {
			return admin.Run(ctx)
		})
	}

	err = g.Wait()
	s.pool.Close()
	return err
}

func (s *Server) acceptLoop(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return fmt.Errorf("accept connection: %w", err)
		}
		connID := uuid.New()
		s.pool.Submit(func(slot uint64) {
			s.serveConn(conn, connID, slot)
		})
	}
}

func (s *Server) serveConn(conn net.Conn, connID uuid.UUID, slot uint64) {
	defer conn.Close()
	codec := protocol.NewCodec(conn, s.opts.MaxMessageSize)

	for {
		req, err := codec.ReadRequest()
		if err != nil {
			if !isClosedErr(err) {
				log.Printf("kvs: connection %s (slot %d): %v", connID, slot, err)
			}
			return
		}

		resp := dispatch(s.engine, req, slot)
		if err := codec.WriteMessage(&resp); err != nil {
			log.Printf("kvs: connection %s (slot %d): write response: %v", connID, slot, err)
			return
		}
	}
}

// dispatch applies req to engine, routing Get through the reader slot the
// pool assigned to this job so connections on different slots never
// contend on the same cached file handles (kvs.Engine.GetFromSlot).
func dispatch(engine kvs.Engine, req protocol.Request, slot uint64) protocol.Response {
	switch req.Kind {
	case protocol.KindGet:
		value, found, err := engine.GetFromSlot(req.Key, slot)
		if err != nil {
			return protocol.Response{Ok: false, Error: err.Error()}
		}
		return protocol.Response{Ok: true, Value: value, Found: found}
	case protocol.KindSet:
		if err := engine.Set(req.Key, req.Value); err != nil {
			return protocol.Response{Ok: false, Error: err.Error()}
		}
		return protocol.Response{Ok: true}
	case protocol.KindRemove:
		if err := engine.Remove(req.Key); err != nil {
			return protocol.Response{Ok: false, Error: err.Error()}
		}
		return protocol.Response{Ok: true}
	default:
		return protocol.Response{Ok: false, Error: fmt.Sprintf("unknown request kind %d", req.Kind)}
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
