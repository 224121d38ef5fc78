package userstack

import "context"

// Pending is the handle returned by Track. Callers may ignore it; it exists
// so tests and shutdown paths can observe the outcome of a background send.
type Pending struct {
	done    chan struct{}
	err     error
	dropped bool

	// dispatched is set when a request was handed to a send goroutine.
	dispatched bool
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{}), dispatched: true}
}

// resolvedPending returns a Pending that is already complete.
func resolvedPending(err error, dropped bool) *Pending {
	p := &Pending{done: make(chan struct{}), err: err, dropped: dropped}
	close(p.done)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Done returns a channel that is closed once the track call has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the track call completes or ctx is done, and returns
// the delivery error, if any.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the delivery error once Done is closed, and nil before.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Dropped reports whether the event was discarded without a network call
// because no session token was stored.
func (p *Pending) Dropped() bool {
	return p.dropped
}
