package ports

import (
	"context"

	"github.com/aretw0/jackpatch/pkg/domain"
)

// ConnectionBackend issues requests to the audio graph.
// Requests are fire-and-forget: a nil error only means the request was sent.
// The outcome is observed later through EventSink.ConnectionAdded/Removed.
type ConnectionBackend interface {
	Connect(from, to string) error
	Disconnect(from, to string) error
}

// GraphEnumerator lists the live graph synchronously.
type GraphEnumerator interface {
	// Snapshot returns every live port and existing connection.
	// Each connection is reported once, from its output side.
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// EventSink receives backend notifications.
// Implementations may be called from any goroutine; the receiver is
// responsible for marshalling them onto its own loop.
type EventSink interface {
	PortAdded(name string, mode domain.PortMode, typ domain.PortType)
	PortRemoved(name string, mode domain.PortMode, typ domain.PortType)
	PortRenamed(oldName, newName string, mode domain.PortMode, typ domain.PortType)
	ConnectionAdded(from, to string)
	ConnectionRemoved(from, to string)
	// Shutdown reports that the backend went away.
	Shutdown()
}

// EventSource delivers backend notifications to a sink until ctx is done.
type EventSource interface {
	Listen(ctx context.Context, sink EventSink) error
}

// Backend is the full audio graph capability consumed by the patcher.
type Backend interface {
	ConnectionBackend
	GraphEnumerator
	EventSource
	Close() error
}
