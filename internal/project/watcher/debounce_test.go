package watcher

import (
	"errors"
	"testing"
	"time"
)

func nextEvent(t *testing.T, d *Debouncer, within time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-d.Events():
		if !ok {
			t.Fatal("Events closed")
		}
		return ev
	case <-time.After(within):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func expectQuiet(t *testing.T, d *Debouncer, quiet time.Duration) {
	t.Helper()
	select {
	case ev := <-d.Events():
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(quiet):
	}
}

func TestDebouncer_DefaultDelay(t *testing.T) {
	d := NewDebouncer(newFakeSource(), 0)
	defer d.Close()
	if d.delay != DefaultDebounce {
		t.Errorf("delay = %v, want %v", d.delay, DefaultDebounce)
	}
}

func TestDebouncer_PassThrough(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 50*time.Millisecond)
	defer d.Close()

	if err := d.Watch("/t/a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := d.Watch("/t/a.txt"); !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("second Watch error = %v", err)
	}
	if got := d.Watched(); len(got) != 1 || got[0] != "/t/a.txt" {
		t.Errorf("Watched = %v", got)
	}
	if err := d.Unwatch("/t/a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := d.Unwatch("/t/a.txt"); !errors.Is(err, ErrNotWatching) {
		t.Errorf("second Unwatch error = %v", err)
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 100*time.Millisecond)
	defer d.Close()

	start := time.Now()
	src.send("/f.txt", OpCreate)
	time.Sleep(30 * time.Millisecond)
	src.send("/f.txt", OpWrite)
	time.Sleep(30 * time.Millisecond)
	src.send("/f.txt", OpChmod)

	ev := nextEvent(t, d, time.Second)
	if ev.Op != OpCreate|OpWrite|OpChmod {
		t.Errorf("Op = %v", ev.Op)
	}
	if waited := time.Since(start); waited < 160*time.Millisecond {
		t.Errorf("delivered after %v; the quiet period restarts on each event", waited)
	}
	expectQuiet(t, d, 150*time.Millisecond)
}

func TestDebouncer_SeparatePaths(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 30*time.Millisecond)
	defer d.Close()

	src.send("/1.txt", OpWrite)
	time.Sleep(10 * time.Millisecond)
	src.send("/2.txt", OpRemove)

	first, second := nextEvent(t, d, time.Second), nextEvent(t, d, time.Second)
	if first.Path != "/1.txt" || second.Path != "/2.txt" || second.Op != OpRemove {
		t.Errorf("events = %+v, %+v", first, second)
	}
}

func TestDebouncer_ErrorsNotDelayed(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, time.Hour)
	defer d.Close()

	boom := errors.New("boom")
	src.errs <- boom
	select {
	case err := <-d.Errors():
		if err != boom {
			t.Errorf("error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("error was held back")
	}
}

func TestDebouncer_FlushAndUnwatch(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, time.Hour)
	defer d.Close()

	_ = d.Watch("/2.txt")
	src.send("/1.txt", OpWrite)
	src.send("/2.txt", OpWrite)

	deadline := time.Now().Add(time.Second)
	for d.Pending() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := d.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}

	_ = d.Unwatch("/2.txt")
	d.Flush()

	if ev := nextEvent(t, d, time.Second); ev.Path != "/1.txt" {
		t.Errorf("Path = %q, want /1.txt", ev.Path)
	}
	expectQuiet(t, d, 20*time.Millisecond)
	if d.Pending() != 0 {
		t.Errorf("Pending after Flush = %d", d.Pending())
	}
}

func TestDebouncer_Close(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, time.Second)

	src.send("/f.txt", OpWrite)
	time.Sleep(20 * time.Millisecond)

	if err := d.Close(); err != nil {
		t.Errorf("Close error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
	if _, ok := <-d.Events(); ok {
		t.Error("pending event survived Close")
	}
	if !src.isClosed() {
		t.Error("wrapped source not closed")
	}
	d.Flush()
}

func TestDebouncer_SourceClosed(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, time.Second)
	src.Close()

	select {
	case <-d.done:
	case <-time.After(time.Second):
		t.Fatal("loop kept running after its source closed")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close error = %v", err)
	}
}
