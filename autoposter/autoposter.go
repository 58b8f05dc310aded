// Package autoposter keeps Top.gg informed of a Discord bot's server count.
//
// An adapter translates its framework's guild events into a server count.
// The Autoposter owns one goroutine that reads the count and posts it to
// Top.gg, no more often than once per interval:
//
//	handler := discordgohandler.New()
//	detach := handler.Register(session)
//	defer detach()
//
//	poster := autoposter.New(client, handler, 30*time.Minute)
//	defer poster.Close()
//
//	for {
//		result, err := poster.Recv(ctx)
//		if err != nil {
//			return err
//		}
//		if result.Err != nil {
//			log.Printf("post failed: %v", result.Err)
//		}
//	}
package autoposter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	topgg "github.com/jamesprial/go-topgg"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/jamesprial/go-topgg/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// MinInterval is the shortest interval Top.gg accepts between posts.
	MinInterval = 15 * time.Minute

	// DefaultBuffer is the default capacity of the result channel.
	DefaultBuffer = 8
)

// Result is the outcome of one post.
type Result struct {
	// Stats is the snapshot that was posted.
	Stats types.Stats
	// Err is nil on success. Otherwise it unwraps to a pkg/errors type such
	// as *errors.RateLimitError.
	Err error
	// At is when the post completed.
	At time.Time
}

// Option configures an Autoposter.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	buffer     int
	sleep      func(ctx context.Context, d time.Duration) error
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the autoposter's Prometheus metrics with reg.
// Metrics are not registered by default.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithBuffer sets how many undrained results are kept. When the buffer is
// full the oldest result is discarded. Defaults to DefaultBuffer.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// withSleep replaces the interval sleep.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		o.sleep = fn
	}
}

// Autoposter posts a handler's stats to Top.gg from a single goroutine until
// Close is called. An Autoposter that becomes unreachable without Close is
// stopped when it is garbage collected.
//
// Results are read either with Recv or, exclusively, from the channel
// returned by Receiver.
type Autoposter[H any] struct {
	handler H
	id      uuid.UUID
	loop    *loop

	cancel    context.CancelFunc
	closeOnce sync.Once

	mu    sync.Mutex
	taken bool
}

// loop is the state owned by the posting goroutine. It must not point back
// at the Autoposter, or a dropped Autoposter could never be collected.
type loop struct {
	poster   topgg.StatsPoster
	interval time.Duration
	read     func() types.Stats
	wait     func(ctx context.Context) error
	sleep    func(ctx context.Context, d time.Duration) error
	log      *slog.Logger
	metrics  *metrics
	results  chan Result
	done     chan struct{}
}

// New starts an autoposter for a handler that maintains SharedStats. It posts
// after every change to the stats, waiting at least interval between posts.
//
// New panics if interval is below MinInterval or client is nil.
func New[H Handler](client AsClient, handler H, interval time.Duration, opts ...Option) *Autoposter[H] {
	stats := handler.Stats()
	if stats == nil {
		panic("autoposter: handler returned nil SharedStats")
	}
	return start(client, handler, interval, stats.Read, stats.Wait, opts)
}

// NewSimple starts an autoposter for a handler that maintains a bare server
// count. It posts the count every interval, starting immediately.
//
// NewSimple panics if interval is below MinInterval or client is nil.
func NewSimple[H CountHandler](client AsClient, handler H, interval time.Duration, opts ...Option) *Autoposter[H] {
	cell := handler.ServerCount()
	if cell == nil {
		panic("autoposter: handler returned nil ServerCount")
	}
	read := func() types.Stats {
		return types.Stats{ServerCount: cell.Get()}
	}
	return start(client, handler, interval, read, nil, opts)
}

func start[H any](client AsClient, handler H, interval time.Duration, read func() types.Stats, wait func(context.Context) error, opts []Option) *Autoposter[H] {
	if interval < MinInterval {
		panic(fmt.Sprintf("autoposter: interval %s is below the %s minimum", interval, MinInterval))
	}
	if client == nil {
		panic("autoposter: nil client")
	}

	o := options{
		logger: slog.Default(),
		buffer: DefaultBuffer,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	l := &loop{
		poster:   client.StatsPoster(),
		interval: interval,
		read:     read,
		wait:     wait,
		sleep:    o.sleep,
		log:      o.logger.WithGroup("autoposter").With("id", id.String()),
		metrics:  newMetrics(o.registerer, id),
		results:  make(chan Result, o.buffer),
		done:     make(chan struct{}),
	}
	a := &Autoposter[H]{
		handler: handler,
		id:      id,
		loop:    l,
		cancel:  cancel,
	}
	runtime.AddCleanup(a, func(cancel context.CancelFunc) { cancel() }, cancel)

	go l.run(ctx)

	return a
}

func (l *loop) run(ctx context.Context) {
	defer close(l.done)

	l.log.Debug("autoposter started", "interval", l.interval, "event_driven", l.wait != nil)

	for {
		if l.wait != nil {
			if err := l.wait(ctx); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		stats := l.read()
		start := time.Now()
		finished, err := l.post(ctx, stats)
		if !finished {
			return
		}

		result := Result{Stats: stats, Err: err, At: time.Now()}
		l.metrics.observe(result, result.At.Sub(start).Seconds())
		l.logResult(result)
		l.publish(result)

		if err := l.sleep(ctx, l.interval); err != nil {
			return
		}
	}
}

// post runs PostStats on its own goroutine so that cancelling ctx abandons
// the call even when the poster ignores ctx. It reports false once ctx is
// done, and the abandoned call's result is discarded.
func (l *loop) post(ctx context.Context, stats types.Stats) (bool, error) {
	out := make(chan error, 1)
	go func() {
		out <- l.poster.PostStats(ctx, stats)
	}()

	select {
	case err := <-out:
		if ctx.Err() != nil {
			return false, nil
		}
		return true, err
	case <-ctx.Done():
		return false, nil
	}
}

func (l *loop) logResult(r Result) {
	if r.Err == nil {
		l.log.Debug("posted stats", "server_count", r.Stats.ServerCount)
		return
	}

	var rl *pkgerrs.RateLimitError
	if errors.As(r.Err, &rl) {
		l.log.Warn("stats post rate limited", "server_count", r.Stats.ServerCount, "retry_after", rl.RetryAfter)
		return
	}
	l.log.Warn("stats post failed", "server_count", r.Stats.ServerCount, "error", r.Err)
}

// publish never blocks the loop: when the buffer is full the oldest result
// makes room for the newest.
func (l *loop) publish(r Result) {
	for {
		select {
		case l.results <- r:
			return
		default:
		}

		select {
		case old := <-l.results:
			l.metrics.droppedResult.Inc()
			l.log.Warn("result buffer full, dropping oldest result", "dropped_at", old.At)
		default:
		}
	}
}

// Handler returns the handler the autoposter reads from.
func (a *Autoposter[H]) Handler() H {
	return a.handler
}

// ID identifies the autoposter in logs and metrics.
func (a *Autoposter[H]) ID() uuid.UUID {
	return a.id
}

// Recv waits for the next post result. Once the autoposter is closed and
// every buffered result has been read, Recv returns an *errors.StateError.
//
// Recv panics if Receiver has been called.
func (a *Autoposter[H]) Recv(ctx context.Context) (Result, error) {
	a.mu.Lock()
	taken := a.taken
	a.mu.Unlock()
	if taken {
		panic("autoposter: Recv called after Receiver")
	}

	select {
	case r, ok := <-a.loop.results:
		if !ok {
			return Result{}, &pkgerrs.StateError{Operation: "Recv", Message: "autoposter is closed"}
		}
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Receiver hands over the result channel. The channel is closed by Close.
// After Receiver, Recv must not be used.
//
// Receiver panics if called more than once.
func (a *Autoposter[H]) Receiver() <-chan Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.taken {
		panic("autoposter: Receiver called twice")
	}
	a.taken = true
	return a.loop.results
}

// Close stops the goroutine and waits for it to exit. A post in flight is
// abandoned without waiting for its result. No post starts after Close
// returns. Close is safe to call more than once.
func (a *Autoposter[H]) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		<-a.loop.done
		close(a.loop.results)
		a.loop.log.Debug("autoposter closed")
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
