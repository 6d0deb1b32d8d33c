package chatclient

import (
	"testing"
	"time"
)

type fakeTimers struct {
	fns []func()
}

func (f *fakeTimers) afterFunc(_ time.Duration, fn func()) *time.Timer {
	f.fns = append(f.fns, fn)
	return time.NewTimer(time.Hour)
}

func (f *fakeTimers) fire(i int) { f.fns[i]() }

func newCountingDebounce(timers *fakeTimers) (*TypingDebounce, *int, *int) {
	starts := 0
	stops := 0
	d := NewTypingDebounce(
		func() error { starts++; return nil },
		func() error { stops++; return nil },
	)
	d.afterFunc = timers.afterFunc
	return d, &starts, &stops
}

func TestBurstEmitsOneStartAndOneStop(t *testing.T) {
	timers := &fakeTimers{}
	d, starts, stops := newCountingDebounce(timers)

	d.InputChanged("h")
	d.InputChanged("he")
	d.InputChanged("hey")
	if *starts != 1 {
		t.Fatalf("expected one start for the burst, got %d", *starts)
	}
	if *stops != 0 {
		t.Fatalf("expected no stop mid-burst, got %d", *stops)
	}

	// Only the latest quiet deadline counts.
	timers.fire(len(timers.fns) - 1)
	if *stops != 1 {
		t.Fatalf("expected one stop when the burst ends, got %d", *stops)
	}

	// Stale timers from earlier keystrokes must not fire a second stop.
	timers.fire(0)
	timers.fire(1)
	if *stops != 1 {
		t.Fatalf("expected stale timers to be ignored, got %d stops", *stops)
	}
}

func TestClearingInputStopsImmediately(t *testing.T) {
	timers := &fakeTimers{}
	d, starts, stops := newCountingDebounce(timers)

	d.InputChanged("h")
	d.InputChanged("")
	if *starts != 1 || *stops != 1 {
		t.Fatalf("expected clearing the input to stop at once, got %d/%d", *starts, *stops)
	}

	// The quiet timer from the keystroke is stale by now.
	timers.fire(0)
	if *stops != 1 {
		t.Fatalf("expected stale timer to be inert, got %d stops", *stops)
	}
}

func TestEmptyInputWithoutBurstEmitsNothing(t *testing.T) {
	timers := &fakeTimers{}
	d, starts, stops := newCountingDebounce(timers)

	d.InputChanged("")
	d.InputChanged("   ")
	if *starts != 0 || *stops != 0 {
		t.Fatalf("expected no signals for empty input, got %d/%d", *starts, *stops)
	}
}

func TestMessageSentEndsBurstImmediately(t *testing.T) {
	timers := &fakeTimers{}
	d, starts, stops := newCountingDebounce(timers)

	d.InputChanged("h")
	d.MessageSent()
	if *starts != 1 || *stops != 1 {
		t.Fatalf("expected start then stop, got %d/%d", *starts, *stops)
	}

	timers.fire(0)
	if *stops != 1 {
		t.Fatalf("expected quiet timer to be inert after send, got %d stops", *stops)
	}
}

func TestStopNeverEmittedWithoutStart(t *testing.T) {
	timers := &fakeTimers{}
	d, _, stops := newCountingDebounce(timers)

	d.MessageSent()
	d.Flush()
	if *stops != 0 {
		t.Fatalf("expected no stop without a preceding start, got %d", *stops)
	}
}

func TestNewBurstAfterQuietPeriod(t *testing.T) {
	timers := &fakeTimers{}
	d, starts, stops := newCountingDebounce(timers)

	d.InputChanged("h")
	timers.fire(0)
	d.InputChanged("h")
	if *starts != 2 {
		t.Fatalf("expected a fresh start after the quiet period, got %d", *starts)
	}
	timers.fire(len(timers.fns) - 1)
	if *stops != 2 {
		t.Fatalf("expected each burst to close, got %d stops", *stops)
	}
}

func TestFlushEndsActiveBurst(t *testing.T) {
	timers := &fakeTimers{}
	d, _, stops := newCountingDebounce(timers)

	d.InputChanged("h")
	d.Flush()
	if *stops != 1 {
		t.Fatalf("expected flush to emit stop, got %d", *stops)
	}
	d.Flush()
	if *stops != 1 {
		t.Fatalf("expected second flush to be a no-op, got %d", *stops)
	}
}
