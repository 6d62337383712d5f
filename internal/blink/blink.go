// Package blink runs the status-LED blink task: a bounded, non-blocking
// producer queue feeding a dedicated goroutine, grounded on
// original_source/main/blink.cpp's queueBlink/blinkTask.
package blink

import (
	"context"
	"time"

	"github.com/librescoot/bms-controller/internal/hal"
)

// Pattern is one blink request: blink N times with the given on/off
// durations, matching blinkType{blinks, onTime, offTime}.
type Pattern struct {
	Blinks  int
	OnTime  time.Duration
	OffTime time.Duration
}

// Each state's exact blink pattern (blink count, on/off durations) is
// declared as a local var next to the state handler that queues it
// (internal/controller/*.go), grounded byte-for-byte on that state's
// queueBlink(...) call in original_source/main/states/*.cpp, rather than
// centralized here -- the per-state numbers don't follow a single shared
// formula (spec.md §7's prose rounds several of them).

// queueDepth is the bounded queue size (3), matching xQueueCreate(3, ...).
const queueDepth = 3

// Task owns the LED and a bounded request channel; Queue is the only
// cross-task producer/consumer channel in the concurrency model
// (spec.md §5).
type Task struct {
	led hal.LED
	ch  chan Pattern
}

// NewTask creates a blink task driving led, with Run not yet started.
func NewTask(led hal.LED) *Task {
	return &Task{led: led, ch: make(chan Pattern, queueDepth)}
}

// Queue enqueues p without blocking; if the queue is full the request is
// dropped, matching xQueueSend(blinkQueue, &blink, 0)'s zero-timeout send.
func (t *Task) Queue(p Pattern) {
	select {
	case t.ch <- p:
	default:
	}
}

// Run drives the LED from queued patterns until ctx is canceled.
func (t *Task) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-t.ch:
			t.play(ctx, p)
		}
	}
}

func (t *Task) play(ctx context.Context, p Pattern) {
	for i := 0; i < p.Blinks; i++ {
		t.led.Set(true)
		if !sleep(ctx, p.OnTime) {
			return
		}
		t.led.Set(false)
		if !sleep(ctx, p.OffTime) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
