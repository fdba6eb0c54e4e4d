package websocket

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Reply when the subscription ended before the
// server replied.
var ErrClosed = errors.New("subscription closed")

// Future tracks the state of one long-running subscription.
type Future struct {
	replied   chan struct{}
	replyOnce sync.Once
	reply     *ReplyMessage
	replyErr  error

	done     chan struct{}
	doneOnce sync.Once
	err      error

	cancel func()
}

func newFuture(cancel func()) *Future {
	return &Future{
		replied: make(chan struct{}),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
}

func (f *Future) resolve(reply *ReplyMessage, err error) bool {
	resolved := false
	f.replyOnce.Do(func() {
		f.reply = reply
		f.replyErr = err
		close(f.replied)
		resolved = true
	})
	return resolved
}

func (f *Future) finish(err error) {
	f.doneOnce.Do(func() {
		f.err = err
		close(f.done)
	})
	if err == nil {
		err = ErrClosed
	}
	f.resolve(nil, err)
}

// Reply blocks until the server acknowledged the subscription request, the
// subscription ended or ctx is done.
func (f *Future) Reply(ctx context.Context) (*ReplyMessage, error) {
	select {
	case <-f.replied:
		return f.reply, f.replyErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the subscription has ended.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err is the error that ended the subscription. It is nil while running and
// after a regular Cancel.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Cancel closes the subscription. It does not wait for the reader to exit.
func (f *Future) Cancel() {
	f.cancel()
}

// Wait blocks until the subscription has ended or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
