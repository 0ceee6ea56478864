package jackpatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/aretw0/jackpatch/internal/logging"
	"github.com/aretw0/jackpatch/internal/runtime"
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/aretw0/jackpatch/pkg/ports"
)

// DefaultEventBuffer is the capacity of the backend event queue.
const DefaultEventBuffer = 256

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("patcher already running")

// Status is a point-in-time view of the patcher.
type Status = runtime.Status

// Patcher serializes backend events, timers and session commands onto one
// goroutine driving the reconciliation engine.
type Patcher struct {
	backend ports.Backend
	store   ports.PatchStore
	engine  *runtime.Engine
	queue   *runtime.DelayQueue

	clock        clock.Clock
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	reporter     ports.SessionReporter
	connectDelay time.Duration
	dirtyDelay   time.Duration
	bufferSize   int

	events   chan func(*runtime.Engine)
	commands chan func(*runtime.Engine)
	done     chan struct{}
	running  atomic.Bool
	gone     bool
}

// Option defines a functional option for configuring the Patcher.
type Option func(*Patcher)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Patcher) {
		p.logger = logger
	}
}

// WithClock sets the time source of the debounce timers.
func WithClock(c clock.Clock) Option {
	return func(p *Patcher) {
		p.clock = c
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Patcher) {
		p.hooks = hooks
	}
}

// WithReporter sets the session manager collaborator notified of dirty
// transitions and open/save completion.
func WithReporter(r ports.SessionReporter) Option {
	return func(p *Patcher) {
		p.reporter = r
	}
}

// WithConnectDelay sets how long port activity must settle before a pass.
func WithConnectDelay(d time.Duration) Option {
	return func(p *Patcher) {
		p.connectDelay = d
	}
}

// WithDirtyDelay sets how long connection activity must settle before the
// dirty flag is evaluated.
func WithDirtyDelay(d time.Duration) Option {
	return func(p *Patcher) {
		p.dirtyDelay = d
	}
}

// WithEventBuffer sets the capacity of the backend event queue.
func WithEventBuffer(n int) Option {
	return func(p *Patcher) {
		p.bufferSize = n
	}
}

// New creates a Patcher over backend and store. Call Run to start it.
func New(backend ports.Backend, store ports.PatchStore, opts ...Option) *Patcher {
	p := &Patcher{
		backend:      backend,
		store:        store,
		queue:        runtime.NewDelayQueue(),
		clock:        clock.NewClock(),
		logger:       logging.NewNop(),
		reporter:     ports.NopReporter{},
		connectDelay: runtime.DefaultConnectDelay,
		dirtyDelay:   runtime.DefaultDirtyDelay,
		bufferSize:   DefaultEventBuffer,
		commands:     make(chan func(*runtime.Engine)),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.events = make(chan func(*runtime.Engine), p.bufferSize)

	p.engine = runtime.NewEngine(backend, store, scheduler{p},
		runtime.WithLogger(p.logger),
		runtime.WithLifecycleHooks(p.hooks),
		runtime.WithReporter(p.reporter),
		runtime.WithConnectDelay(p.connectDelay),
		runtime.WithDirtyDelay(p.dirtyDelay),
		runtime.WithNow(p.clock.Now),
	)
	return p
}

// Run enumerates the live graph, subscribes to backend events and processes
// them until ctx is done or the backend shuts down.
//
// It returns domain.ErrBackendUnavailable when the graph cannot be
// enumerated, domain.ErrBackendShutdown when the server goes away, and
// ctx.Err() on cancellation.
func (p *Patcher) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(p.done)

	snap, err := p.backend.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrBackendUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	p.engine.Seed(snap)
	p.logger.Info("Patcher started", "ports", len(snap.Ports), "connections", len(snap.Connections))

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- p.backend.Listen(listenCtx, sink{p})
	}()

	timer := p.clock.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fn := <-p.events:
			fn(p.engine)

		case cmd := <-p.commands:
			cmd(p.engine)

		case <-timer.C():
			for _, tok := range p.queue.PopDue(p.clock.Now()) {
				p.engine.Fire(tok)
			}

		case err := <-listenErr:
			p.drain()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				return fmt.Errorf("%w: event listener: %w", domain.ErrBackendShutdown, err)
			}
			p.logger.Warn("Backend stopped delivering events")
			return domain.ErrBackendShutdown
		}

		if p.gone {
			p.logger.Warn("Backend shut down")
			return domain.ErrBackendShutdown
		}
		p.rearm(timer)
	}
}

// drain applies events already queued when the listener exits.
func (p *Patcher) drain() {
	for {
		select {
		case fn := <-p.events:
			fn(p.engine)
		default:
			return
		}
	}
}

func (p *Patcher) rearm(timer clock.Timer) {
	timer.Stop()
	next, ok := p.queue.Next()
	if !ok {
		return
	}
	timer.Reset(max(next.Sub(p.clock.Now()), 0))
}

// post queues a backend event unless the loop has exited.
func (p *Patcher) post(fn func(*runtime.Engine)) {
	select {
	case p.events <- fn:
	case <-p.done:
	}
}

// do runs fn on the loop goroutine and waits for it to complete.
func (p *Patcher) do(ctx context.Context, fn func(*runtime.Engine)) error {
	finished := make(chan struct{})
	cmd := func(e *runtime.Engine) {
		defer close(finished)
		fn(e)
	}

	select {
	case p.commands <- cmd:
	case <-p.done:
		return domain.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the command always runs to completion on the loop.
	<-finished
	return nil
}

// Open loads the patch of projectPath (with the ".xml" extension appended)
// and applies it to the live graph.
func (p *Patcher) Open(ctx context.Context, projectPath string) error {
	var err error
	if doErr := p.do(ctx, func(e *runtime.Engine) {
		err = e.Open(ctx, projectPath)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Save merges the live connections into the desired set and persists it.
func (p *Patcher) Save(ctx context.Context) error {
	var err error
	if doErr := p.do(ctx, func(e *runtime.Engine) {
		err = e.Save(ctx)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Status snapshots the patcher state.
func (p *Patcher) Status(ctx context.Context) (Status, error) {
	var st Status
	err := p.do(ctx, func(e *runtime.Engine) {
		st = e.Status()
	})
	return st, err
}

// ConnectAllSaved requests every saved connection touching the named port
// at once, bypassing the one-at-a-time throttle. It returns how many
// requests were issued.
func (p *Patcher) ConnectAllSaved(ctx context.Context, name string, mode domain.PortMode) (int, error) {
	var n int
	err := p.do(ctx, func(e *runtime.Engine) {
		n = e.ConnectAllSaved(name, mode)
	})
	return n, err
}

// Done is closed when Run returns.
func (p *Patcher) Done() <-chan struct{} {
	return p.done
}

// scheduler backs the engine timers with the patcher's delay queue.
// Only called from the loop goroutine.
type scheduler struct {
	p *Patcher
}

func (s scheduler) Schedule(token ports.Token, delay time.Duration) {
	s.p.queue.Schedule(token, s.p.clock.Now().Add(delay))
}

// sink marshals backend callbacks onto the loop goroutine.
type sink struct {
	p *Patcher
}

func (s sink) PortAdded(name string, mode domain.PortMode, typ domain.PortType) {
	s.p.post(func(e *runtime.Engine) { e.PortAdded(name, mode, typ) })
}

func (s sink) PortRemoved(name string, mode domain.PortMode, typ domain.PortType) {
	s.p.post(func(e *runtime.Engine) { e.PortRemoved(name, mode, typ) })
}

func (s sink) PortRenamed(oldName, newName string, mode domain.PortMode, typ domain.PortType) {
	s.p.post(func(e *runtime.Engine) { e.PortRenamed(oldName, newName, mode, typ) })
}

func (s sink) ConnectionAdded(from, to string) {
	s.p.post(func(e *runtime.Engine) { e.ConnectionAdded(from, to) })
}

func (s sink) ConnectionRemoved(from, to string) {
	s.p.post(func(e *runtime.Engine) { e.ConnectionRemoved(from, to) })
}

func (s sink) Shutdown() {
	s.p.post(func(*runtime.Engine) { s.p.gone = true })
}

var _ ports.EventSink = sink{}
