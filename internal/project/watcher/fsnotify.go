package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier is a Source backed by fsnotify.
type Notifier struct {
	fsw *fsnotify.Watcher

	mu     sync.Mutex
	dirs   map[string]map[string]struct{} // directory -> watched base names
	closed bool

	events  chan Event
	errs    chan error
	dropped atomic.Int64
	done    chan struct{}
}

var _ Source = (*Notifier)(nil)

// NewNotifier starts an fsnotify watcher whose channels hold up to
// buffer items. A non-positive buffer uses DefaultBuffer.
func NewNotifier(buffer int) (*Notifier, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	fsw, err := fsnotify.NewBufferedWatcher(uint(buffer))
	if err != nil {
		return nil, err
	}
	n := &Notifier{
		fsw:    fsw,
		dirs:   make(map[string]map[string]struct{}),
		events: make(chan Event, buffer),
		errs:   make(chan error, buffer),
		done:   make(chan struct{}),
	}
	go n.loop()
	return n, nil
}

// Watch starts reporting changes to the regular file at path.
func (n *Notifier) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("watch %s: %w", abs, ErrNotFile)
	}
	dir, name := filepath.Dir(abs), filepath.Base(abs)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	names, ok := n.dirs[dir]
	if _, dup := names[name]; dup {
		return ErrAlreadyWatching
	}
	if !ok {
		if err := n.fsw.Add(dir); err != nil {
			return err
		}
		names = make(map[string]struct{})
		n.dirs[dir] = names
	}
	names[name] = struct{}{}
	return nil
}

// Unwatch stops reporting changes to path. The parent directory is
// released with its last watched file.
func (n *Notifier) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, name := filepath.Dir(abs), filepath.Base(abs)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	names := n.dirs[dir]
	if _, ok := names[name]; !ok {
		return ErrNotWatching
	}
	delete(names, name)
	if len(names) > 0 {
		return nil
	}
	delete(n.dirs, dir)
	if err := n.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return err
	}
	return nil
}

// Watched returns the watched files, sorted.
func (n *Notifier) Watched() []string {
	n.mu.Lock()
	var paths []string
	for dir, names := range n.dirs {
		for name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	n.mu.Unlock()
	slices.Sort(paths)
	return paths
}

// WatchedDirs returns how many directories are registered with fsnotify.
func (n *Notifier) WatchedDirs() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dirs)
}

// Dropped returns how many events were discarded because nobody was
// reading Events.
func (n *Notifier) Dropped() int64 {
	return n.dropped.Load()
}

func (n *Notifier) Events() <-chan Event { return n.events }
func (n *Notifier) Errors() <-chan error { return n.errs }

// Close stops watching and closes both channels.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	err := n.fsw.Close()
	<-n.done
	close(n.events)
	close(n.errs)
	return err
}

// loop runs until fsnotify closes its channels.
func (n *Notifier) loop() {
	defer close(n.done)
	for {
		select {
		case ev, ok := <-n.fsw.Events:
			if !ok {
				return
			}
			n.forward(ev)
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return
			}
			select {
			case n.errs <- err:
			default:
			}
		}
	}
}

func (n *Notifier) forward(ev fsnotify.Event) {
	op := Op(ev.Op) & opAll
	if op == 0 {
		return
	}
	dir, name := filepath.Dir(ev.Name), filepath.Base(ev.Name)

	n.mu.Lock()
	_, watched := n.dirs[dir][name]
	n.mu.Unlock()
	if !watched {
		return
	}

	select {
	case n.events <- Event{Path: ev.Name, Op: op, At: time.Now()}:
	default:
		n.dropped.Add(1)
	}
}
