// Package livereload watches a served directory and reloads connected
// browser tabs when files under it change.
package livereload

import (
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sirupsen/logrus"
)

const Endpoint = "/livereload"

type Reloader struct {
	root     string
	watcher  *fsnotify.Watcher
	upgrader websocket.Upgrader

	access  sync.Mutex
	clients map[*websocket.Conn]struct{}
	done    chan struct{}
}

func New(root string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, E.Cause(err, "create watcher")
	}
	reloader := &Reloader{
		root:    root,
		watcher: watcher,
		clients: make(map[*websocket.Conn]struct{}),
		done:    make(chan struct{}),
	}
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, E.Cause(err, "watch root directory")
	}
	go reloader.loop()
	return reloader, nil
}

func (r *Reloader) loop() {
	debounced := debounce.New(100 * time.Millisecond)
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					r.watcher.Add(event.Name)
				}
			}
			logrus.Debug("changed: ", event.Name)
			debounced(r.broadcast)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logrus.Warn("watch: ", err)
		case <-r.done:
			return
		}
	}
}

func (r *Reloader) broadcast() {
	r.access.Lock()
	defer r.access.Unlock()
	for conn := range r.clients {
		err := conn.WriteMessage(websocket.TextMessage, []byte("reload"))
		if err != nil {
			conn.Close()
			delete(r.clients, conn)
		}
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the tab
// goes away.
func (r *Reloader) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	conn, err := r.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		logrus.Warn("livereload: ", err)
		return
	}
	r.access.Lock()
	r.clients[conn] = struct{}{}
	r.access.Unlock()
	go func() {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
		r.access.Lock()
		delete(r.clients, conn)
		r.access.Unlock()
		conn.Close()
	}()
}

func (r *Reloader) Close() error {
	close(r.done)
	err := r.watcher.Close()
	r.access.Lock()
	for conn := range r.clients {
		conn.Close()
	}
	r.clients = make(map[*websocket.Conn]struct{})
	r.access.Unlock()
	return err
}
