package proposal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrelops/cascade/internal/burden"
	"github.com/kestrelops/cascade/internal/phase"
)

// #region watcher

// debounceDelay absorbs the write bursts editors produce when saving.
const debounceDelay = 200 * time.Millisecond

// Watcher reloads the proposal directory whenever a YAML file changes
// and delivers the merged tables. A proposal that fails to parse is
// logged and skipped; the previous tables stay in force.
type Watcher struct {
	dir  string
	base map[phase.Regime]burden.WeightTable
	log  *slog.Logger

	fsw *fsnotify.Watcher
	out chan map[phase.Regime]burden.WeightTable
}

// NewWatcher starts watching dir. Base is the config-file weight set the
// proposals overlay.
func NewWatcher(dir string, base map[phase.Regime]burden.WeightTable, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:  dir,
		base: base,
		log:  log,
		fsw:  fsw,
		out:  make(chan map[phase.Regime]burden.WeightTable, 1),
	}, nil
}

// Tables delivers a merged weight set after each directory change.
func (w *Watcher) Tables() <-chan map[phase.Regime]burden.WeightTable {
	return w.out
}

// Run processes filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			// Coalesce bursts into one reload.
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				fire = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("proposal watch error", "err", err)

		case <-fire:
			timer = nil
			fire = nil
			w.reload()
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	return ext == ".yaml" || ext == ".yml"
}

func (w *Watcher) reload() {
	proposals, err := LoadDir(w.dir)
	if err != nil {
		w.log.Warn("proposal reload failed, keeping previous weights", "dir", w.dir, "err", err)
		return
	}
	merged := Merge(w.base, proposals)
	w.log.Info("proposals reloaded", "dir", w.dir, "files", len(proposals))

	// Drop a stale undelivered set; only the newest matters.
	select {
	case <-w.out:
	default:
	}
	w.out <- merged
}

// #endregion watcher
