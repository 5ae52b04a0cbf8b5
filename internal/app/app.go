// Package app wires configuration, the file store and the change watcher
// together and answers position queries against open files.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/textstore/internal/config"
	"github.com/dshills/textstore/internal/config/loader"
	perrors "github.com/dshills/textstore/internal/project/errors"
	"github.com/dshills/textstore/internal/project/filestore"
	"github.com/dshills/textstore/internal/project/vfs"
	"github.com/dshills/textstore/internal/project/watcher"
)

// StdinName is the path that opens standard input.
const StdinName = "-"

// Application is the central coordinator for textstore components.
type Application struct {
	mu sync.RWMutex

	config   *config.Config
	settings config.Settings

	store   *filestore.FileStore
	watcher watcher.Source
	poller  *filestore.Poller

	logger  *Logger
	metrics *Metrics

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// LogLevel overrides the configured logging verbosity.
	LogLevel string

	// Overrides are setting values from the command line, keyed by
	// dotted path. They win over every other source.
	Overrides map[string]any

	// FS is the file system documents are read from. Defaults to the OS.
	FS vfs.VFS

	// ConfigFS is the file system the config file is read from.
	ConfigFS loader.FileSystem

	// Stdin is read when StdinName is opened. Defaults to os.Stdin.
	Stdin io.Reader

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer
}

// New creates a new Application with the given options.
func New(ctx context.Context, opts Options) (*Application, error) {
	app := &Application{
		opts:    opts,
		metrics: NewMetrics(),
	}
	if err := app.bootstrap(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap loads configuration and builds the store.
func (app *Application) bootstrap(ctx context.Context) error {
	cfgOpts := []config.Option{config.WithFile(app.opts.ConfigPath)}
	if app.opts.ConfigFS != nil {
		cfgOpts = append(cfgOpts, config.WithFS(app.opts.ConfigFS))
	}
	app.config = config.New(cfgOpts...)
	for path, value := range app.opts.Overrides {
		if err := app.config.Set(path, value); err != nil {
			return opError(OpConfig, path, err)
		}
	}
	if app.opts.LogLevel != "" {
		if err := app.config.Set("logging.level", app.opts.LogLevel); err != nil {
			return opError(OpConfig, "logging.level", err)
		}
	}
	if err := app.config.Load(ctx); err != nil {
		return opError(OpConfig, app.config.Path(), err)
	}

	settings, err := app.config.Settings()
	if err != nil {
		return opError(OpConfig, "", errors.Join(ErrInitialization, err))
	}
	app.settings = settings

	level, _ := ParseLevel(settings.Log.Level)
	app.logger = NewLogger(app.opts.LogOutput, level)
	if path := app.config.Path(); path != "" {
		app.logger.Debug("configuration from %s", path)
	}

	fsys := app.opts.FS
	if fsys == nil {
		fsys = vfs.NewOSFS()
	}
	app.store = filestore.NewFileStore(fsys,
		filestore.WithMaxFileSize(settings.Files.MaxFileSize),
		filestore.WithStride(settings.Index.Stride),
		filestore.WithGrain(settings.Registry.Grain),
		filestore.WithMmap(settings.Files.Mmap),
		filestore.WithAllowBinary(settings.Files.AllowBinary),
		filestore.WithLogger(app.logger.Component("store")),
	)
	return nil
}

// Config returns the configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Settings returns the typed settings the application was built with.
func (app *Application) Settings() config.Settings {
	return app.settings
}

// Store returns the file store.
func (app *Application) Store() *filestore.FileStore {
	return app.store
}

// Open opens a file, or standard input for StdinName.
func (app *Application) Open(ctx context.Context, path string) (*filestore.Document, error) {
	timer := StartTimer()
	var doc *filestore.Document
	var err error
	if path == StdinName {
		stdin := app.opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		doc, err = app.store.OpenReader(ctx, path, stdin)
	} else {
		doc, err = app.store.Open(ctx, path)
	}
	app.metrics.RecordOpen(timer.Elapsed(), err)
	if err != nil {
		return nil, opError(OpOpen, path, err)
	}
	return doc, nil
}

// OpenAll opens every path, collecting failures.
func (app *Application) OpenAll(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if _, err := app.Open(ctx, path); err != nil {
			app.logger.Component("store").Error("%v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// borrow returns the open document for path, opening it on demand, and
// holds its content until done is called.
func (app *Application) borrow(ctx context.Context, path string) (*filestore.Document, func(), error) {
	if doc, done, ok := app.store.Borrow(path); ok {
		return doc, done, nil
	}
	if _, err := app.Open(ctx, path); err != nil {
		return nil, nil, err
	}
	doc, done, ok := app.store.Borrow(path)
	if !ok {
		// Closed again before the query could start.
		return nil, nil, opError(OpOpen, path, perrors.ErrNotOpen)
	}
	return doc, done, nil
}

// Run keeps open documents up to date until ctx is done, then shuts down.
// It returns immediately after shutdown when watching is disabled.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	app.mu.Lock()
	app.cancel = cancel
	app.done = make(chan struct{})
	done := app.done
	app.mu.Unlock()
	defer close(done)
	defer cancel()

	if app.settings.Files.Watch {
		app.startWatching(ctx)
		<-ctx.Done()
	}
	return app.shutdown()
}

// Stop asks a running application to shut down and waits for it, or
// for ctx to expire.
func (app *Application) Stop(ctx context.Context) error {
	app.mu.RLock()
	cancel, done := app.cancel, app.done
	app.mu.RUnlock()
	if !app.running.Load() || cancel == nil {
		return ErrNotRunning
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}

// IsRunning reports whether Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// startWatching reloads documents when their files change. File system
// notifications are used when available, with polling as the fallback.
func (app *Application) startWatching(ctx context.Context) {
	log := app.logger.Component("watcher")
	files := app.settings.Files

	inner, err := watcher.NewNotifier(0)
	if err != nil {
		log.Warn("notifications unavailable, polling every %v: %v", files.PollInterval, err)
		app.startPolling(files.PollInterval)
		return
	}

	w := watcher.NewDebouncer(inner, files.Debounce)
	app.mu.Lock()
	app.watcher = w
	app.mu.Unlock()

	app.store.OnOpen(func(doc *filestore.Document) {
		app.watch(w, doc)
	})
	app.store.OnClose(func(path string) {
		if err := w.Unwatch(path); err != nil && !errors.Is(err, watcher.ErrNotWatching) {
			log.Debug("unwatch %s: %v", path, err)
		}
	})
	for _, doc := range app.store.Documents() {
		app.watch(w, doc)
	}

	go watcher.Run(ctx, w, app.handleEvent, func(err error) {
		log.Warn("%v", err)
	})
	log.Info("watching %d files", len(w.Watched()))
}

func (app *Application) watch(w watcher.Source, doc *filestore.Document) {
	if doc.IsStream() {
		return
	}
	if err := w.Watch(doc.Path); err != nil && !errors.Is(err, watcher.ErrAlreadyWatching) {
		app.logger.Component("watcher").Warn("watch %s: %v", doc.Path, err)
	}
}

func (app *Application) startPolling(interval time.Duration) {
	p := filestore.NewPoller(app.store, interval)
	p.OnError(func(path string, err error) {
		app.metrics.RecordReload(0, err)
		app.logger.Component("poller").Warn("reload %s: %v", path, err)
	})
	app.mu.Lock()
	app.poller = p
	app.mu.Unlock()
	p.Start()
}

// handleEvent reloads the document behind a watch event.
func (app *Application) handleEvent(event watcher.Event) {
	app.metrics.RecordEvent()
	log := app.logger.Component("watcher")

	if event.Op.Gone() {
		// The old content stays readable until the path reappears.
		log.Info("%s: %s", event.Path, event.Op)
		return
	}
	if !event.Op.Changed() {
		return
	}

	timer := StartTimer()
	doc, err := app.store.Reload(context.Background(), event.Path)
	app.metrics.RecordReload(timer.Elapsed(), err)
	if err != nil {
		log.Warn("%v", opError(OpReload, event.Path, err))
		return
	}
	log.Debug("%s now at version %d", doc.Path, doc.Version)
}

// shutdown stops watching and closes every document.
func (app *Application) shutdown() error {
	app.mu.Lock()
	w, p := app.watcher, app.poller
	app.watcher, app.poller = nil, nil
	app.mu.Unlock()

	var errs []error
	if w != nil {
		errs = append(errs, w.Close())
	}
	if p != nil {
		p.Stop()
	}
	errs = append(errs, app.store.CloseAll(context.Background()))
	app.running.Store(false)

	err := opError(OpShutdown, "", errors.Join(errs...))
	if err != nil {
		app.logger.Error("%v", err)
	}
	return err
}

// Close releases everything without running.
func (app *Application) Close() error {
	if app.running.Load() {
		return app.Stop(context.Background())
	}
	return app.shutdown()
}
