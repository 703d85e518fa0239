package orchestrator

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// SignalWatcher maps files dropped into the signals directory onto
// orchestrator controls: "pause" pauses processing, "resume" resumes it,
// and "kill" stops the orchestrator. External tooling can steer a running
// instance without an RPC surface.
type SignalWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchSignals starts watching dir for control files on behalf of o.
// The directory is created if missing.
func WatchSignals(dir string, o *Orchestrator) (*SignalWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	sw := &SignalWatcher{
		dir:     dir,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go sw.loop(o)
	return sw, nil
}

func (sw *SignalWatcher) loop(o *Orchestrator) {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			switch filepath.Base(event.Name) {
			case "pause":
				o.Pause()
			case "resume":
				o.Resume()
				os.Remove(filepath.Join(sw.dir, "pause"))
				os.Remove(event.Name)
			case "kill":
				log.Printf("[orchestrator] kill signal received")
				o.Stop()
			}
		case <-sw.watcher.Errors:
			// Keep watching.
		}
	}
}

// Close stops the watcher.
func (sw *SignalWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
