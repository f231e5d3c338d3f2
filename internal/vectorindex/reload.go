package vectorindex

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Sakthi-S29/trackwise/internal/blobstore"
	"github.com/Sakthi-S29/trackwise/internal/logger"
)

// Reloader watches the locally published index pair and reloads the
// flat index when the offline rebuild job republishes it. The batch
// job replaces both files via rename, so a change event on the vector
// file means a complete new pair is in place.
type Reloader struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *logger.Logger
}

// NewReloader starts watching the directory holding indexPath and
// textsPath (both files in store's root) and reloads index when the
// vector file is replaced.
func NewReloader(store *blobstore.LocalStore, index *FlatIndex, indexKey, textsKey string, log *logger.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	indexPath := store.Path(indexKey)
	// Watch the directory: publishes happen by rename, which replaces
	// the inode a file-level watch would be pinned to.
	if err := watcher.Add(filepath.Dir(indexPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch index dir: %w", err)
	}

	r := &Reloader{
		watcher: watcher,
		done:    make(chan struct{}),
		log:     log,
	}

	go r.loop(store, index, indexPath, indexKey, textsKey)
	return r, nil
}

func (r *Reloader) loop(store *blobstore.LocalStore, index *FlatIndex, indexPath, indexKey, textsKey string) {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Name != indexPath {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := index.LoadFrom(ctx, store, indexKey, textsKey)
			cancel()
			if err != nil {
				r.log.Warn("index reload failed: %v", err)
				continue
			}
			count, _ := index.Count(context.Background())
			r.log.InfoWithFields("index reloaded from published blobs", []logger.Field{logger.Count(count)})
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("index watcher error: %v", err)
		case <-r.done:
			return
		}
	}
}

// Close stops watching
func (r *Reloader) Close() error {
	close(r.done)
	return r.watcher.Close()
}
