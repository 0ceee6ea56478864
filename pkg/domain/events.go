package domain

import "time"

// EventType defines the category of an engine event.
type EventType string

const (
	EventConnectRequest EventType = "connect_request"
	EventPass           EventType = "pass"
	EventDirtyChange    EventType = "dirty_change"
	EventOpen           EventType = "open"
	EventSave           EventType = "save"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// ConnectEvent reports a connect request handed to the backend.
type ConnectEvent struct {
	EventBase
	Connection Connection `json:"connection"`
	Bulk       bool       `json:"bulk,omitempty"`
	Err        error      `json:"-"`
}

// PassEvent reports the outcome of one reconciliation pass.
type PassEvent struct {
	EventBase
	Issued  bool `json:"issued"`
	Forced  bool `json:"forced,omitempty"`
	Pending bool `json:"pending"`
}

// DirtyEvent reports an edge transition of the dirty flag.
type DirtyEvent struct {
	EventBase
	Dirty bool `json:"dirty"`
}

// SessionEvent reports a completed open or save.
type SessionEvent struct {
	EventBase
	Path        string        `json:"path"`
	Connections int           `json:"connections"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run on the engine's goroutine and must not block.
type LifecycleHooks struct {
	OnConnectRequest func(*ConnectEvent)
	OnPass           func(*PassEvent)
	OnDirtyChange    func(*DirtyEvent)
	OnOpen           func(*SessionEvent)
	OnSave           func(*SessionEvent)
}

// Snapshot is the backend graph as enumerated at startup.
type Snapshot struct {
	Ports       []Port
	Connections ConnectionSet
}
