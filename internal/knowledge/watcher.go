package knowledge

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-indexes knowledge files as they are created or modified.
type Watcher struct {
	indexer *Indexer
	watcher *fsnotify.Watcher
	log     *zap.Logger
}

func NewWatcher(indexer *Indexer, dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		indexer: indexer,
		watcher: w,
		log:     indexer.log.Named("watcher"),
	}, nil
}

// Run blocks until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Knowledge watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !Supported(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		n, err := w.indexer.IndexFile(ctx, event.Name)
		if err != nil {
			w.log.Error("Failed to re-index knowledge file", zap.String("file", event.Name), zap.Error(err))
			return
		}
		w.log.Info("Knowledge file re-indexed", zap.String("file", event.Name), zap.Int("documents", n))
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.log.Warn("Knowledge file removed; its indexed documents are kept", zap.String("file", event.Name))
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
