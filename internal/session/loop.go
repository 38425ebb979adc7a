package session

import (
	"errors"
	"sync"
)

// ErrClosed is returned by every session method once Close has been called
var ErrClosed = errors.New("session closed")

// loop serializes all access to a session's state on one goroutine
type loop struct {
	ops       chan func()
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func newLoop() *loop {
	l := &loop{
		ops:    make(chan func()),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.exited)
	for {
		select {
		case op := <-l.ops:
			op()
		case <-l.done:
			return
		}
	}
}

// do runs fn on the loop and waits for it to return.
// It must not be called from the loop itself.
func (l *loop) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case l.ops <- func() { fn(); close(ran) }:
	case <-l.done:
		return ErrClosed
	}
	<-ran
	return nil
}

// post hands fn to the loop without waiting for it to run
func (l *loop) post(fn func()) bool {
	select {
	case l.ops <- fn:
		return true
	case <-l.done:
		return false
	}
}

// close stops the loop and waits for the op in progress to finish
func (l *loop) close() {
	l.closeOnce.Do(func() { close(l.done) })
	<-l.exited
}
