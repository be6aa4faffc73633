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

	"github.com/fsnotify/fsnotify"
)

// WatchDirectory watches dir for writes, removals and renames — e.g. an
// operator manually deleting a generation file, or a second server instance
// mistakenly pointed at the same directory. It logs every such event,
// including the writes and removals of this process's own store; it does
// not tell those apart from outside changes. It only logs; it does not
// attempt automatic recovery. Returns a function to stop watching.
func WatchDirectory(dir string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
					log.Printf("kvs: external modification to %s detected: %s", dir, ev)
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("kvs: watcher error on %s: %v", dir, werr)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}
