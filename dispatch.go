package main

import (
	"context"
	"errors"
)

var errDispatcherStopped = errors.New("dispatcher stopped")

type event struct {
	run  func()
	done chan struct{}
}

// dispatcher runs UI events one at a time on a single goroutine, the way a
// toolkit's main loop does. Everything that touches the tree model goes
// through it.
type dispatcher struct {
	events  chan event
	stopped chan struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		events:  make(chan event),
		stopped: make(chan struct{}),
	}
}

// run processes events until ctx is done
func (d *dispatcher) run(ctx context.Context) {
	defer close(d.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			ev.run()
			close(ev.done)
		}
	}
}

// submit queues fn and waits for it to finish. If ctx ends first the event
// may still run later, but the caller no longer waits for it.
func (d *dispatcher) submit(ctx context.Context, fn func()) error {
	ev := event{run: fn, done: make(chan struct{})}
	select {
	case d.events <- ev:
	case <-d.stopped:
		return errDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ev.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
