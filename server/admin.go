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

package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/launix-de/kvs"
)

// AdminServer exposes a plain HTTP /stats endpoint and a /stats/ws
// websocket that pushes a fresh snapshot every second.
type AdminServer struct {
	engine kvs.Engine
	addr   string
	srv    *http.Server
}

func NewAdminServer(engine kvs.Engine, addr string) *AdminServer {
	return &AdminServer{engine: engine, addr: addr}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (a *AdminServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", a.handleStats)
	mux.HandleFunc("/stats/ws", a.handleStatsWS)

	a.srv = &http.Server{Addr: a.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (a *AdminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.engine.Stats())
}

func (a *AdminServer) handleStatsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("kvs: admin websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	p := message.NewPrinter(language.English)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := a.engine.Stats()
		line := p.Sprintf("engine=%s generation=%d uncompacted=%d bytes keys=%d",
			stats.Engine, stats.Generation, stats.UncompactedBytes, stats.KeyCount)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
}
