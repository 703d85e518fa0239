package provider

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchCatalog reloads the registry whenever the catalog file changes, so
// a running pool picks up pricing and priority edits without a restart.
// Adapters for entries removed from the catalog are dropped; new entries
// surface as offline until the process restarts with their credentials.
// Close the returned watcher to stop.
func WatchCatalog(path string, registry *Registry) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace files on save, which drops a
	// watch held on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				specs, err := LoadCatalog(path)
				if err != nil {
					log.Printf("[provider] catalog reload skipped: %v", err)
					continue
				}
				registry.Reload(specs)
				log.Printf("[provider] catalog reloaded: %d provider(s)", len(specs))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[provider] catalog watcher error: %v", err)
			}
		}
	}()

	return watcher, nil
}
