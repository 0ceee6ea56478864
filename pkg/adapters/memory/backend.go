package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/aretw0/jackpatch/pkg/ports"
)

// ErrClosed is returned by a closed backend.
var ErrClosed = errors.New("backend closed")

// Backend is an in-process audio graph implementing ports.Backend.
// It records every request and optionally answers them the way a real server
// would, by emitting the matching connection events.
// Safe for concurrent use.
type Backend struct {
	mu          sync.Mutex
	ports       []domain.Port
	conns       domain.ConnectionSet
	requests    []domain.Connection
	disconnects []domain.Connection
	autoAck     bool
	connectErr  error
	closed      bool

	queue  []func(ports.EventSink)
	notify chan struct{}
}

// BackendOption configures the Backend.
type BackendOption func(*Backend)

// WithAutoAck makes the backend apply requests and emit the matching events.
func WithAutoAck() BackendOption {
	return func(b *Backend) {
		b.autoAck = true
	}
}

// WithPorts seeds ports that exist before the patcher starts.
func WithPorts(ps ...domain.Port) BackendOption {
	return func(b *Backend) {
		b.ports = append(b.ports, ps...)
	}
}

// WithConnections seeds connections that exist before the patcher starts.
func WithConnections(cs ...domain.Connection) BackendOption {
	return func(b *Backend) {
		for _, c := range cs {
			b.conns.Add(c)
		}
	}
}

// NewBackend creates a simulated backend.
func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{notify: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns the current ports and connections.
func (b *Backend) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return domain.Snapshot{}, ErrClosed
	}
	ps := make([]domain.Port, len(b.ports))
	copy(ps, b.ports)
	return domain.Snapshot{Ports: ps, Connections: b.conns.Clone()}, nil
}

// Listen delivers queued events to sink until ctx is done or the backend is closed.
func (b *Backend) Listen(ctx context.Context, sink ports.EventSink) error {
	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		closed := b.closed
		b.mu.Unlock()

		for _, ev := range batch {
			ev(sink)
		}
		if closed {
			sink.Shutdown()
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-b.notify:
		}
	}
}

// Connect records the request. With auto-ack it also connects the pair.
func (b *Backend) Connect(from, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.requests = append(b.requests, domain.Connection{From: from, To: to})
	if b.connectErr != nil {
		return b.connectErr
	}
	if b.autoAck && b.routable(from, to) && b.conns.Add(domain.Connection{From: from, To: to}) {
		b.emit(func(s ports.EventSink) { s.ConnectionAdded(from, to) })
	}
	return nil
}

// Disconnect records the request. With auto-ack it also disconnects the pair.
func (b *Backend) Disconnect(from, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.disconnects = append(b.disconnects, domain.Connection{From: from, To: to})
	if b.autoAck && b.conns.Remove(domain.Connection{From: from, To: to}) {
		b.emit(func(s ports.EventSink) { s.ConnectionRemoved(from, to) })
	}
	return nil
}

// Close shuts the backend down; a running Listen reports Shutdown.
func (b *Backend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wake()
	return nil
}

// FailConnects makes every later Connect return err; nil restores success.
func (b *Backend) FailConnects(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectErr = err
}

// AddPort registers a port as a client would.
func (b *Backend) AddPort(name string, mode domain.PortMode, typ domain.PortType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ports = append(b.ports, domain.Port{Name: name, Mode: mode, Type: typ})
	b.emit(func(s ports.EventSink) { s.PortAdded(name, mode, typ) })
}

// RemovePort unregisters a port and drops its connections, emitting the
// connection removals first as a real server does.
func (b *Backend) RemovePort(name string, mode domain.PortMode, typ domain.PortType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, p := range b.ports {
		if p.Name == name && p.Mode == mode {
			b.ports = append(b.ports[:i], b.ports[i+1:]...)
			break
		}
	}
	for _, c := range b.conns.Clone() {
		if c.From == name || c.To == name {
			b.conns.Remove(c)
			c := c
			b.emit(func(s ports.EventSink) { s.ConnectionRemoved(c.From, c.To) })
		}
	}
	b.emit(func(s ports.EventSink) { s.PortRemoved(name, mode, typ) })
}

// RenamePort renames a port.
func (b *Backend) RenamePort(oldName, newName string, mode domain.PortMode, typ domain.PortType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.ports {
		if b.ports[i].Name == oldName && b.ports[i].Mode == mode {
			b.ports[i].Name = newName
		}
	}
	b.emit(func(s ports.EventSink) { s.PortRenamed(oldName, newName, mode, typ) })
}

// Patch connects a pair directly, as a user with another patchbay would.
func (b *Backend) Patch(from, to string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conns.Add(domain.Connection{From: from, To: to}) {
		b.emit(func(s ports.EventSink) { s.ConnectionAdded(from, to) })
	}
}

// Unpatch disconnects a pair directly.
func (b *Backend) Unpatch(from, to string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conns.Remove(domain.Connection{From: from, To: to}) {
		b.emit(func(s ports.EventSink) { s.ConnectionRemoved(from, to) })
	}
}

// Requests returns the connect requests received so far, in order.
func (b *Backend) Requests() []domain.Connection {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Connection, len(b.requests))
	copy(out, b.requests)
	return out
}

// Disconnects returns the disconnect requests received so far, in order.
func (b *Backend) Disconnects() []domain.Connection {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Connection, len(b.disconnects))
	copy(out, b.disconnects)
	return out
}

// Connections returns the backend's own view of the live connections.
func (b *Backend) Connections() domain.ConnectionSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conns.Clone()
}

func (b *Backend) routable(from, to string) bool {
	var out, in bool
	for _, p := range b.ports {
		if p.Name == from && p.Mode == domain.PortModeOutput {
			out = true
		}
		if p.Name == to && p.Mode == domain.PortModeInput {
			in = true
		}
	}
	return out && in
}

// emit queues an event; callers hold b.mu.
func (b *Backend) emit(ev func(ports.EventSink)) {
	b.queue = append(b.queue, ev)
	b.wake()
}

func (b *Backend) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
