package filestore

import (
	"context"
	"sync"
	"time"
)

// Poller periodically reloads documents whose files changed on disk.
// It is the fallback when file system notifications are unavailable.
type Poller struct {
	mu       sync.Mutex
	store    *FileStore
	interval time.Duration
	running  bool
	stop     chan struct{}
	done     chan struct{}

	onError []func(path string, err error)
}

// NewPoller creates a poller for store.
func NewPoller(store *FileStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		store:    store,
		interval: interval,
	}
}

// Start begins polling.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go p.loop()
}

// Stop stops polling and waits for an in-progress check to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	<-p.done
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// CheckNow reloads every changed document immediately and returns the
// number of documents replaced.
func (p *Poller) CheckNow(ctx context.Context) int {
	p.mu.Lock()
	handlers := make([]func(string, error), len(p.onError))
	copy(handlers, p.onError)
	p.mu.Unlock()

	reloaded := 0
	for _, doc := range p.store.CheckExternalChanges() {
		next, err := p.store.Reload(ctx, doc.Path)
		if err != nil {
			for _, handler := range handlers {
				handler(doc.Path, err)
			}
			continue
		}
		if next != doc {
			reloaded++
		}
	}
	return reloaded
}

// OnError registers a handler called when a reload fails.
func (p *Poller) OnError(handler func(path string, err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = append(p.onError, handler)
}

func (p *Poller) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.CheckNow(context.Background())
		}
	}
}
