package workspace

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Watcher polls the workspace for changed, added and removed files.
type Watcher struct {
	ws       *Workspace
	stopCh   chan struct{}
	done     chan struct{}
	interval time.Duration
	modTimes map[string]time.Time

	// OnChange is called with every file re-parsed by a poll.
	OnChange func(*File)
	// OnRemove is called with the path of every file that disappeared.
	OnRemove func(path string)
	// OnError is called when a file cannot be read or parsed.
	OnError func(path string, err error)
}

func NewWatcher(ws *Workspace, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		ws:       ws,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		interval: interval,
		modTimes: make(map[string]time.Time),
	}
}

func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop ends polling and waits for the current poll to finish.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.done
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks every matching file once.
func (w *Watcher) Poll(ctx context.Context) {
	paths, err := w.ws.list()
	if err != nil {
		w.fail("", err)
		return
	}
	current := make(map[string]bool, len(paths))
	for _, p := range paths {
		current[p] = true
		info, err := os.Stat(filepath.Join(w.ws.root, filepath.FromSlash(p)))
		if err != nil {
			if !os.IsNotExist(err) {
				w.fail(p, err)
			}
			continue
		}
		last, known := w.modTimes[p]
		if known && !info.ModTime().After(last) {
			continue
		}
		w.modTimes[p] = info.ModTime()
		f, err := w.ws.ScanFile(ctx, p)
		switch {
		case err != nil:
			w.fail(p, err)
		case f != nil && w.OnChange != nil:
			w.OnChange(f)
		}
	}

	for p := range w.modTimes {
		if current[p] {
			continue
		}
		delete(w.modTimes, p)
		w.ws.Remove(p)
		if w.OnRemove != nil {
			w.OnRemove(p)
		}
	}
}

func (w *Watcher) fail(p string, err error) {
	if onError := w.OnError; onError != nil {
		onError(p, err)
		return
	}
	w.ws.log.Error("watch failed", "path", p, "error", err.Error())
}
