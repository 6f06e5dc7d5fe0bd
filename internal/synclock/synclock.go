// Package synclock serializes milestone task syncs. The SQLite write lock
// already makes one sync atomic; a Locker additionally keeps several API
// processes sharing one database from queueing redundant syncs.
package synclock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotAcquired = errors.New("sync lock not acquired")
	ErrNotHeld     = errors.New("sync lock not held")
)

// Release gives the lock back. It must be called exactly once.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// Local is an in-process lock honouring context cancellation while waiting.
type Local struct {
	ch chan struct{}
}

func NewLocal() *Local {
	return &Local{ch: make(chan struct{}, 1)}
}

func (l *Local) Acquire(ctx context.Context) (Release, error) {
	select {
	case l.ch <- struct{}{}:
		return func(context.Context) error {
			select {
			case <-l.ch:
				return nil
			default:
				return ErrNotHeld
			}
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Noop never blocks.
type Noop struct{}

func (Noop) Acquire(context.Context) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

type options struct {
	ttl        time.Duration
	retryDelay time.Duration
	retryCount int
}

type Option func(*options)

// WithTTL bounds how long a crashed holder blocks others.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func WithRetry(count int, delay time.Duration) Option {
	return func(o *options) {
		o.retryCount = count
		o.retryDelay = delay
	}
}

func defaultOptions() options {
	return options{ttl: 30 * time.Second, retryDelay: 100 * time.Millisecond, retryCount: 50}
}
