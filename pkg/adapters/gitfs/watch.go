package gitfs

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// watcher invalidates cached collections when their files change outside
// this process (another writer, a git pull, a manual edit).
type watcher struct {
	conn    *Connector
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	stopped chan struct{}
}

func newWatcher(ctx context.Context, conn *Connector) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(conn.config.Path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w := &watcher{
		conn:    conn,
		fsw:     fsw,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	lifecycle.Go(runCtx, func(ctx context.Context) error {
		defer close(w.stopped)
		defer fsw.Close()
		return w.run(ctx)
	}, lifecycle.WithErrorHandler(func(err error) {
		if conn.config.WatchErrorHandler != nil {
			conn.config.WatchErrorHandler(err)
		} else if conn.config.Logger != nil {
			conn.config.Logger.Error("watcher failed", "error", err)
		}
	}))

	return w, nil
}

func (w *watcher) run(ctx context.Context) error {
	ext := w.conn.collectionExt()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ext) || strings.HasPrefix(name, tempFilePrefix) {
				continue
			}
			container := strings.TrimSuffix(name, ext)
			w.conn.cache.drop(container)
			if w.conn.config.Logger != nil {
				w.conn.config.Logger.Debug("cache invalidated by file change", "container", container, "op", event.Op.String())
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if w.conn.config.WatchErrorHandler != nil {
				w.conn.config.WatchErrorHandler(err)
			} else if w.conn.config.Logger != nil {
				w.conn.config.Logger.Error("fsnotify error", "error", err)
			}
		}
	}
}

func (w *watcher) stop() {
	w.cancel()
	<-w.stopped
}
