package worker

import (
	"context"
	"sync"
	"time"

	cerrors "github.com/Zuo-Peng/chatdash/internal/errors"
)

// Op is the kind of work a request performs.
type Op string

const (
	OpParse  Op = "parse"
	OpFilter Op = "filter"
)

// State is the lifecycle of the latest request for one Op.
type State int

const (
	Idle State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Pending is the handle for a submitted request. It resolves exactly once.
type Pending[T any] struct {
	op      Op
	token   uint64
	timeout time.Duration

	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newPending[T any](op Op, token uint64, timeout time.Duration) *Pending[T] {
	return &Pending[T]{op: op, token: token, timeout: timeout, done: make(chan struct{})}
}

func (p *Pending[T]) Op() Op        { return p.op }
func (p *Pending[T]) Token() uint64 { return p.token }

// Done is closed once the request has resolved.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Pending[T]) resolve(v T, err error) {
	p.once.Do(func() {
		p.val, p.err = v, err
		close(p.done)
	})
}

// Wait blocks until the request resolves, ctx ends, or the harness timeout
// passes. A superseded request returns a STALE_RESULT error.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	var timer <-chan time.Time
	if p.timeout > 0 {
		t := time.NewTimer(p.timeout)
		defer t.Stop()
		timer = t.C
	}

	var zero T
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer:
		return zero, cerrors.Timeout(string(p.op), p.timeout)
	}
}

// job is one queued unit of work. drop resolves it without running.
type job struct {
	op    Op
	token uint64
	exec  func()
	drop  func(error)
}
