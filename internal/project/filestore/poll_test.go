package filestore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestPoller_StartStop(t *testing.T) {
	store, _ := setupTestStore(t)
	p := NewPoller(store, 10*time.Millisecond)

	if p.IsRunning() {
		t.Error("should not be running before Start")
	}
	p.Start()
	p.Start()
	if !p.IsRunning() {
		t.Error("should be running after Start")
	}
	p.Stop()
	p.Stop()
	if p.IsRunning() {
		t.Error("should not be running after Stop")
	}
}

func TestPoller_CheckNow(t *testing.T) {
	store, memfs := setupTestStore(t)
	ctx := context.Background()

	memfs.AddFile("/a.txt", "a")
	memfs.AddFile("/b.txt", "b")
	memfs.AddFile("/c.txt", "c")
	store.Open(ctx, "/a.txt")
	store.Open(ctx, "/b.txt")
	store.Open(ctx, "/c.txt")

	p := NewPoller(store, time.Hour)
	var failed []string
	p.OnError(func(path string, err error) {
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s: unexpected error %v", path, err)
		}
		failed = append(failed, path)
	})

	if n := p.CheckNow(ctx); n != 0 {
		t.Errorf("CheckNow = %d with no changes", n)
	}

	memfs.AddFile("/a.txt", "changed")
	memfs.AddFile("/b.txt", "b")
	if n := p.CheckNow(ctx); n != 1 {
		t.Errorf("CheckNow = %d, want 1", n)
	}
	if doc, _ := store.Get("/a.txt"); string(doc.File.Bytes()) != "changed" {
		t.Errorf("a.txt = %q", doc.File.Bytes())
	}
	if n := p.CheckNow(ctx); n != 0 {
		t.Errorf("second CheckNow = %d, want 0", n)
	}

	// A deleted file is skipped, not reported.
	memfs.Remove("/c.txt")
	p.CheckNow(ctx)
	if len(failed) != 0 {
		t.Errorf("failed = %v", failed)
	}
}

func TestPoller_AutoReload(t *testing.T) {
	store, memfs := setupTestStore(t)
	ctx := context.Background()

	memfs.AddFile("/a.txt", "one")
	store.Open(ctx, "/a.txt")

	reloaded := make(chan *Document, 1)
	store.OnReload(func(doc *Document) {
		select {
		case reloaded <- doc:
		default:
		}
	})

	p := NewPoller(store, 5*time.Millisecond)
	p.Start()
	defer p.Stop()

	memfs.AddFile("/a.txt", "two")

	select {
	case doc := <-reloaded:
		if string(doc.File.Bytes()) != "two" {
			t.Errorf("content = %q", doc.File.Bytes())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not reload the changed file")
	}
}
