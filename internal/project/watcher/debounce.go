package watcher

import (
	"slices"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 100 * time.Millisecond

// Debouncer wraps a Source and coalesces the events of each file. An
// event is delivered once its file has been quiet for the delay, with
// the union of every Op seen in that window. Errors pass straight
// through.
type Debouncer struct {
	src   Source
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent

	events chan Event
	errs   chan error
	flush  chan chan struct{}

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

type pendingEvent struct {
	Event
	due time.Time
}

var _ Source = (*Debouncer)(nil)

// NewDebouncer wraps src. A non-positive delay uses DefaultDebounce.
func NewDebouncer(src Source, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	d := &Debouncer{
		src:     src,
		delay:   delay,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, DefaultBuffer),
		errs:    make(chan error, DefaultBuffer),
		flush:   make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Debouncer) Watch(path string) error { return d.src.Watch(path) }
func (d *Debouncer) Watched() []string       { return d.src.Watched() }
func (d *Debouncer) Events() <-chan Event    { return d.events }
func (d *Debouncer) Errors() <-chan error    { return d.errs }

// Unwatch stops watching path and drops its pending event.
func (d *Debouncer) Unwatch(path string) error {
	if err := d.src.Unwatch(path); err != nil {
		return err
	}
	d.mu.Lock()
	delete(d.pending, path)
	d.mu.Unlock()
	return nil
}

// Pending returns the number of files with an undelivered event.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush delivers every pending event now.
func (d *Debouncer) Flush() {
	ack := make(chan struct{})
	select {
	case d.flush <- ack:
		<-ack
	case <-d.done:
	}
}

// Close discards pending events, closes the wrapped source and closes
// both channels.
func (d *Debouncer) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.quit)
		<-d.done
		close(d.events)
		close(d.errs)
		err = d.src.Close()
	})
	return err
}

func (d *Debouncer) loop() {
	defer close(d.done)

	timer := time.NewTimer(d.delay)
	timer.Stop()
	in, errs := d.src.Events(), d.src.Errors()

	for {
		select {
		case <-d.quit:
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			d.add(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			select {
			case d.errs <- err:
			default:
			}
		case now := <-timer.C:
			d.emit(now)
		case ack := <-d.flush:
			d.emit(time.Time{})
			close(ack)
		}

		if next, ok := d.nextDue(); ok {
			timer.Reset(time.Until(next))
		} else {
			timer.Stop()
		}
	}
}

func (d *Debouncer) add(ev Event) {
	due := time.Now().Add(d.delay)

	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[ev.Path]; ok {
		p.Op |= ev.Op
		p.At = ev.At
		p.due = due
		return
	}
	d.pending[ev.Path] = &pendingEvent{Event: ev, due: due}
}

// emit delivers the events due by now, oldest first. A zero now
// delivers everything.
func (d *Debouncer) emit(now time.Time) {
	d.mu.Lock()
	var ready []*pendingEvent
	for path, p := range d.pending {
		if now.IsZero() || !p.due.After(now) {
			ready = append(ready, p)
			delete(d.pending, path)
		}
	}
	d.mu.Unlock()

	slices.SortFunc(ready, func(a, b *pendingEvent) int { return a.due.Compare(b.due) })
	for _, p := range ready {
		select {
		case d.events <- p.Event:
		default:
		}
	}
}

func (d *Debouncer) nextDue() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return time.Time{}, false
	}
	var next time.Time
	for _, p := range d.pending {
		if next.IsZero() || p.due.Before(next) {
			next = p.due
		}
	}
	return next, true
}
