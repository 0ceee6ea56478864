package jackdbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/aretw0/jackpatch/pkg/ports"
	"github.com/godbus/dbus/v5"
)

// caller is the subset of dbus.BusObject used for method calls.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

type portInfo struct {
	mode domain.PortMode
	typ  domain.PortType
}

// Backend implements ports.Backend over jackdbus.
type Backend struct {
	conn   *dbus.Conn
	obj    caller
	logger *slog.Logger

	mu    sync.Mutex
	known map[string]portInfo
}

// Option configures the Backend.
type Option func(*Backend)

// WithLogger sets the logger for signal decoding problems.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// Dial connects to the session bus and checks that the JACK server is running.
func Dial(opts ...Option) (*Backend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %w", domain.ErrBackendUnavailable, err)
	}
	b := newBackend(conn.Object(Service, ObjectPath), opts...)
	b.conn = conn

	var started bool
	if err := b.obj.Call(methodIsStarted, 0).Store(&started); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	if !started {
		conn.Close()
		return nil, fmt.Errorf("%w: jack server is not started", domain.ErrBackendUnavailable)
	}
	return b, nil
}

func newBackend(obj caller, opts ...Option) *Backend {
	b := &Backend{
		obj:    obj,
		logger: slog.New(slog.DiscardHandler),
		known:  make(map[string]portInfo),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot fetches the whole graph with GetGraph.
func (b *Backend) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var (
		version uint64
		clients []graphClient
		conns   []graphConnection
	)
	call := b.obj.Call(methodGetGraph, 0, uint64(0))
	if err := call.Store(&version, &clients, &conns); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: GetGraph: %w", domain.ErrBackendUnavailable, err)
	}

	snap := snapshotOf(clients, conns)
	b.mu.Lock()
	for _, p := range snap.Ports {
		b.known[p.Name] = portInfo{mode: p.Mode, typ: p.Type}
	}
	b.mu.Unlock()

	b.logger.Debug("graph enumerated", "version", version, "ports", len(snap.Ports), "connections", len(snap.Connections))
	return snap, nil
}

// Connect asks jackdbus to connect two ports by full name.
func (b *Backend) Connect(from, to string) error {
	return b.byName(methodConnectByName, from, to)
}

// Disconnect asks jackdbus to disconnect two ports by full name.
func (b *Backend) Disconnect(from, to string) error {
	return b.byName(methodDisconnectByName, from, to)
}

func (b *Backend) byName(method, from, to string) error {
	c1, p1, ok := splitName(from)
	if !ok {
		return fmt.Errorf("invalid port name %q", from)
	}
	c2, p2, ok := splitName(to)
	if !ok {
		return fmt.Errorf("invalid port name %q", to)
	}
	return b.obj.Call(method, 0, c1, p1, c2, p2).Err
}

// Listen subscribes to patchbay and server signals and forwards them to sink
// until ctx is done or the bus connection drops.
func (b *Backend) Listen(ctx context.Context, sink ports.EventSink) error {
	if b.conn == nil {
		return fmt.Errorf("%w: not connected", domain.ErrBackendUnavailable)
	}

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface(PatchbayInterface), dbus.WithMatchObjectPath(ObjectPath)},
		{dbus.WithMatchInterface(ControlInterface), dbus.WithMatchMember("ServerStopped")},
		{dbus.WithMatchInterface("org.freedesktop.DBus"), dbus.WithMatchMember("NameOwnerChanged"), dbus.WithMatchArg(0, Service)},
	}
	for _, m := range matches {
		if err := b.conn.AddMatchSignalContext(ctx, m...); err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
		defer b.conn.RemoveMatchSignal(m...)
	}

	ch := make(chan *dbus.Signal, 64)
	b.conn.Signal(ch)
	defer b.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				sink.Shutdown()
				return nil
			}
			if stop := b.dispatch(sig, sink); stop {
				return nil
			}
		}
	}
}

// dispatch translates one signal. It reports whether the server went away.
func (b *Backend) dispatch(sig *dbus.Signal, sink ports.EventSink) bool {
	strs, words := fields(sig.Body)

	switch sig.Name {
	case signalPortAppeared:
		if len(strs) < 2 || len(words) < 2 {
			b.malformed(sig)
			return false
		}
		name := fullName(strs[0], strs[1])
		mode, typ := modeOf(words[0]), typeOf(words[1])

		b.mu.Lock()
		b.known[name] = portInfo{mode: mode, typ: typ}
		b.mu.Unlock()

		sink.PortAdded(name, mode, typ)

	case signalPortDisappeared:
		// (version, client id, client, port id, port): mode and type come from
		// the port table.
		if len(strs) < 2 {
			b.malformed(sig)
			return false
		}
		name := fullName(strs[0], strs[1])

		b.mu.Lock()
		info, ok := b.known[name]
		delete(b.known, name)
		b.mu.Unlock()

		if !ok {
			b.logger.Debug("removal of unknown port", "port", name)
			return false
		}
		sink.PortRemoved(name, info.mode, info.typ)

	case signalPortRenamed:
		if len(strs) < 3 {
			b.malformed(sig)
			return false
		}
		oldName, newName := fullName(strs[0], strs[1]), fullName(strs[0], strs[2])

		b.mu.Lock()
		info, ok := b.known[oldName]
		if ok {
			delete(b.known, oldName)
			b.known[newName] = info
		}
		b.mu.Unlock()

		if !ok {
			b.logger.Warn("rename of unknown port", "old", oldName, "new", newName)
			return false
		}
		sink.PortRenamed(oldName, newName, info.mode, info.typ)

	case signalPortsConnected, signalPortsDisconnected:
		if len(strs) < 4 {
			b.malformed(sig)
			return false
		}
		from, to := fullName(strs[0], strs[1]), fullName(strs[2], strs[3])
		if sig.Name == signalPortsConnected {
			sink.ConnectionAdded(from, to)
		} else {
			sink.ConnectionRemoved(from, to)
		}

	case signalServerStopped:
		sink.Shutdown()
		return true

	case signalNameOwnerChanged:
		// (name, old_owner, new_owner): an empty new owner means the relay exited.
		if len(strs) == 3 && strs[0] == Service && strs[2] == "" {
			sink.Shutdown()
			return true
		}
	}
	return false
}

func (b *Backend) malformed(sig *dbus.Signal) {
	b.logger.Warn("malformed signal", "name", sig.Name, "signature", dbus.SignatureOf(sig.Body...).String())
}

// Close drops the bus connection.
func (b *Backend) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

var _ ports.Backend = (*Backend)(nil)
