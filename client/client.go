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

// Package client implements the kvs-client side of package protocol: a
// thin request/response RPC Client plus a REPL built on chzyer/readline
// and launix-de/go-packrat/v2 for command parsing.
package client

import (
	"errors"
	"fmt"
	"net"

	"github.com/launix-de/kvs/protocol"
)

// Client holds one connection to a kvs-server and serializes requests over
// it: single request in flight, matching the server's per-connection read
// loop.
type Client struct {
	conn  net.Conn
	codec *protocol.Codec
}

func Dial(addr string, maxMessageSize uint64) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, codec: protocol.NewCodec(conn, maxMessageSize)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := c.codec.WriteMessage(&req); err != nil {
		return protocol.Response{}, err
	}
	return c.codec.ReadResponse()
}

// Get returns (value, found, error). A server-side error string is
// surfaced verbatim via err, matching the formatted error strings the
// original kvs-server produces (most notably "Key not found" for rm).
func (c *Client) Get(key string) (string, bool, error) {
	resp, err := c.roundTrip(protocol.Request{Kind: protocol.KindGet, Key: key})
	if err != nil {
		return "", false, err
	}
	if !resp.Ok {
		return "", false, errors.New(resp.Error)
	}
	return resp.Value, resp.Found, nil
}

func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(protocol.Request{Kind: protocol.KindSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return errors.New(resp.Error)
	}
	return nil
}

func (c *Client) Remove(key string) error {
	resp, err := c.roundTrip(protocol.Request{Kind: protocol.KindRemove, Key: key})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return errors.New(resp.Error)
	}
	return nil
}
