package schemawatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/scilit/paperbase/internal/database"
)

// debounceDuration collapses editor write bursts into one validation pass.
const debounceDuration = 2 * time.Second

// Watcher watches the schema.sql override file and re-runs schema validation
// whenever it changes, logging any drift between the script and the live
// catalog. It never mutates the schema itself.
type Watcher struct {
	validator *database.Validator
	target    string
	watcher   *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   *time.Timer

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher over the schema script location used by mgr.
func New(mgr *database.Manager, validator *database.Validator) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		validator: validator,
		target:    mgr.SchemaScriptPath(),
		watcher:   fsWatcher,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start begins watching the schema script's directory. Watching the directory
// rather than the file keeps the watch alive across editor rename-and-replace
// saves.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := w.watcher.Add(filepath.Dir(w.target)); err != nil {
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.eventLoop()

	log.Info().Str("path", w.target).Msg("Schema watcher started")
	return nil
}

// Stop halts the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.cancel()
	_ = w.watcher.Close()
	w.wg.Wait()
	w.running = false
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.target) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleValidation()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Schema watcher error")
		}
	}
}

func (w *Watcher) scheduleValidation() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(debounceDuration, w.revalidate)
}

func (w *Watcher) revalidate() {
	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	report, err := w.validator.ValidateSchema(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Schema revalidation failed")
		return
	}

	if report.Valid {
		log.Info().Msg("Schema script changed; live schema still valid")
		return
	}
	log.Warn().
		Strs("issues", report.Issues).
		Msg("Schema script changed and live schema has drift; run init to apply")
}
