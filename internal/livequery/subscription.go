package livequery

import (
	"context"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDelivering
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDelivering:
		return "delivering"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Subscription wraps one query and re-runs it whenever a dependency mark or
// a broadcast arrives. It delivers at most one in-flight result: a new
// result supersedes an undelivered previous one rather than queuing behind
// a slow consumer.
type Subscription[T any] struct {
	id     string
	run    func(context.Context) (T, error)
	out    chan T
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}
	logger zerolog.Logger
}

// Open starts a subscription watching the given tables. The query runs once
// immediately, then again after every relevant change. A run that fails
// leaves the subscription idle; it retries on the next signal instead of
// looping.
func Open[T any](
	ctx context.Context,
	logger zerolog.Logger,
	tracker *Tracker,
	notifier *Notifier,
	tables []string,
	run func(context.Context) (T, error),
) *Subscription[T] {
	id, err := gonanoid.New()
	if err != nil {
		id = "sub"
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		id:     id,
		run:    run,
		out:    make(chan T, 1),
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger.With().Str("subscription_id", id).Logger(),
	}

	changes, stopWatch := tracker.Watch(tables...)
	broadcasts, stopBroadcast := notifier.Subscribe()

	go func() {
		defer close(s.done)
		defer stopWatch()
		defer stopBroadcast()
		defer s.state.Store(int32(StateCancelled))

		s.logger.Debug().Strs("tables", tables).Msg("subscription opened")

		s.execute(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
			case <-broadcasts:
			}
			s.execute(ctx)
		}
	}()

	return s
}

func (s *Subscription[T]) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.state.Store(int32(StateRunning))

	result, err := s.run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("live query run failed, staying idle until next signal")
		}
		s.state.Store(int32(StateIdle))
		return
	}

	// Cancellation observed after the run discards the result.
	if ctx.Err() != nil {
		return
	}

	s.state.Store(int32(StateDelivering))
	select {
	case s.out <- result:
	default:
		// Consumer has not taken the previous result; supersede it.
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- result:
		default:
		}
	}
	s.state.Store(int32(StateIdle))
}

// Results delivers each fresh result set. The channel is never closed while
// the subscription is open; after Cancel, no further values arrive.
func (s *Subscription[T]) Results() <-chan T {
	return s.out
}

// Cancel stops the subscription. Cooperative: an in-flight run is
// interrupted through its context and its result discarded.
func (s *Subscription[T]) Cancel() {
	s.cancel()
	<-s.done
}

func (s *Subscription[T]) ID() string { return s.id }

func (s *Subscription[T]) State() State { return State(s.state.Load()) }
