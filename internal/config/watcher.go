package config

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tellmewhen/internal/event"
	logx "tellmewhen/pkg/logx"
)

// Watcher reports when event files change on disk after startup.
//
// The running catalog is static, so the watcher never applies anything. It
// re-validates the files and logs what a restart would pick up, which lets
// an operator catch a broken edit before restarting the server.
type Watcher struct {
	paths   []string
	running []event.Definition
	log     logx.Logger

	debounce time.Duration

	// onCheck is called after every re-validation (tests).
	onCheck func(Change, error)
}

func NewWatcher(paths []string, running []event.Definition, log logx.Logger) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{
		paths:    append([]string(nil), paths...),
		running:  running,
		log:      log,
		debounce: 250 * time.Millisecond,
	}
}

// Check re-reads every file and compares it with the running definitions.
func (w *Watcher) Check() (Change, error) {
	defs, err := LoadFiles(w.paths)
	if err != nil {
		return Change{}, err
	}
	return SummarizeChange(w.running, defs), nil
}

func (w *Watcher) check() {
	c, err := w.Check()
	switch {
	case err != nil:
		w.log.Warn("config on disk is invalid; restart would fail", logx.Err(err))
	case c.Empty():
		w.log.Debug("config on disk unchanged")
	default:
		w.log.Warn("config on disk differs from running events; restart to apply",
			logx.Strs("added", c.Added),
			logx.Strs("removed", c.Removed),
			logx.Strs("changed", c.Changed),
		)
	}
	if w.onCheck != nil {
		w.onCheck(c, err)
	}
}

// Watch runs until ctx is done. A re-validation already in progress is
// waited for before Watch returns.
func (w *Watcher) Watch(ctx context.Context) {
	dirs := map[string]struct{}{}
	files := map[string]struct{}{}
	for _, p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
		files[strings.ToLower(filepath.Base(p))] = struct{}{}
	}

	// When fsnotify gets into a bad state the watcher may stop delivering
	// events or close its channels. Self-heal by recreating it with backoff.
	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff = min(backoff*2, restartBackoffMax)
		}
		return wait
	}

	// debounce to avoid partial writes. Each armed timer holds one count on
	// checks, released either by its callback or by a successful Stop.
	var (
		timerMu sync.Mutex
		timer   *time.Timer
		checks  sync.WaitGroup
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil && timer.Stop() {
			checks.Done()
		}
		checks.Add(1)
		timer = time.AfterFunc(w.debounce, func() {
			defer checks.Done()
			if ctx.Err() == nil {
				w.check()
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil && timer.Stop() {
			checks.Done()
		}
		timerMu.Unlock()
		checks.Wait()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			for d := range dirs {
				if err = fw.Add(d); err != nil {
					_ = fw.Close()
					break
				}
			}
		}
		if err != nil {
			w.log.Warn("config watch init failed", logx.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextWait()):
				continue
			}
		}

		backoff = restartBackoffBase
		w.log.Debug("config watcher started", logx.Int("files", len(files)))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if _, mine := files[strings.ToLower(filepath.Base(ev.Name))]; !mine {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					schedule()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("config watch overflow; re-checking", logx.Err(err))
					schedule()
					continue
				}
				w.log.Warn("config watch error", logx.Err(err))
			}
		}

		_ = fw.Close()
		wait := nextWait()
		w.log.Warn("config watcher stopped; restarting", logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
