package workspace

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"phasebench/internal/logging"
)

// Watcher waits for the candidate solution file to change, debouncing
// rapid saves. It prefers fsnotify and falls back to polling at a fixed
// interval (spec §5's suspension point) when the watch cannot be
// established, e.g. on a network-mounted workspace.
type Watcher struct {
	mu           sync.Mutex
	mailbox      *Mailbox
	pollInterval time.Duration
	debounce     time.Duration
	lastModTime  time.Time
}

// NewWatcher builds a watcher over mailbox's solution file.
func NewWatcher(mailbox *Mailbox, pollInterval time.Duration) *Watcher {
	return &Watcher{
		mailbox:      mailbox,
		pollInterval: pollInterval,
		debounce:     300 * time.Millisecond,
	}
}

// Seed records the solution file's current mtime so the first
// WaitForChange call only fires on an actual subsequent edit, not on
// whatever state the file was already in.
func (w *Watcher) Seed() {
	if info, err := os.Stat(w.mailbox.SolutionPath()); err == nil {
		w.mu.Lock()
		w.lastModTime = info.ModTime()
		w.mu.Unlock()
	}
}

// WaitForChange blocks until the solution file's mtime advances past
// the last observed value, or ctx is cancelled, then returns its
// contents.
func (w *Watcher) WaitForChange(ctx context.Context) (string, error) {
	log := logging.Get(logging.CategoryWorkspace)

	if fw, err := fsnotify.NewWatcher(); err == nil {
		if err := fw.Add(w.mailbox.dir); err == nil {
			log.Debug("watching %s via fsnotify", w.mailbox.dir)
			defer fw.Close()
			return w.waitFsnotify(ctx, fw)
		}
		fw.Close()
		log.Warn("fsnotify add failed for %s, falling back to polling", w.mailbox.dir)
	} else {
		log.Warn("fsnotify unavailable (%v), falling back to polling", err)
	}

	return w.waitPoll(ctx)
}

// checkChanged stats the solution file and, if its mtime has advanced,
// updates lastModTime and returns its contents.
func (w *Watcher) checkChanged() (content string, changed bool, err error) {
	info, err := os.Stat(w.mailbox.SolutionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	w.mu.Lock()
	if !info.ModTime().After(w.lastModTime) {
		w.mu.Unlock()
		return "", false, nil
	}
	w.lastModTime = info.ModTime()
	w.mu.Unlock()

	data, err := w.mailbox.ReadSolution()
	if err != nil {
		return "", false, err
	}
	return data, true, nil
}

func (w *Watcher) waitFsnotify(ctx context.Context, fw *fsnotify.Watcher) (string, error) {
	target := w.mailbox.SolutionPath()
	debounceTimer := time.NewTimer(24 * time.Hour)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return w.waitPoll(ctx)
			}
			if event.Name != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return w.waitPoll(ctx)
			}
			logging.Get(logging.CategoryWorkspace).Warn("fsnotify error: %v", err)

		case <-debounceTimer.C:
			content, changed, err := w.checkChanged()
			if err != nil {
				return "", err
			}
			if !changed {
				continue
			}
			return content, nil
		}
	}
}

// waitPoll stats the solution file at a fixed interval and returns as
// soon as its mtime advances past the last observed value.
func (w *Watcher) waitPoll(ctx context.Context) (string, error) {
	interval := w.pollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			content, changed, err := w.checkChanged()
			if err != nil {
				return "", err
			}
			if !changed {
				continue
			}
			return content, nil
		}
	}
}
