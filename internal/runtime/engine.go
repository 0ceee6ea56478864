package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/jackpatch/internal/logging"
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/aretw0/jackpatch/pkg/ports"
)

const (
	// TokenReconcile schedules a reconciliation pass.
	TokenReconcile ports.Token = "reconcile"
	// TokenDirty schedules a dirty-state evaluation.
	TokenDirty ports.Token = "dirty"

	DefaultConnectDelay = 200 * time.Millisecond
	DefaultDirtyDelay   = 500 * time.Millisecond
)

// Engine is the reconciliation context of one managed session.
// It owns the live graph, the desired set and the reconciliation flags.
//
// Engine is not safe for concurrent use: every method must be called from the
// same goroutine, which is also the goroutine that delivers scheduled tasks
// through Fire.
type Engine struct {
	graph   *domain.Graph
	desired domain.ConnectionSet
	path    string

	pending  bool
	forced   bool
	inflight *domain.Connection
	dirty    bool

	backend   ports.ConnectionBackend
	store     ports.PatchStore
	scheduler ports.Scheduler
	reporter  ports.SessionReporter
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time

	connectDelay time.Duration
	dirtyDelay   time.Duration
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithReporter sets the session-lifecycle collaborator.
func WithReporter(r ports.SessionReporter) EngineOption {
	return func(e *Engine) {
		e.reporter = r
	}
}

// WithConnectDelay sets the debounce window of reconciliation passes.
func WithConnectDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.connectDelay = d
	}
}

// WithDirtyDelay sets the debounce window of dirty-state evaluation.
func WithDirtyDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.dirtyDelay = d
	}
}

// WithNow sets the time source used for event timestamps.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with an empty graph and desired set.
func NewEngine(backend ports.ConnectionBackend, store ports.PatchStore, scheduler ports.Scheduler, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:        domain.NewGraph(),
		backend:      backend,
		store:        store,
		scheduler:    scheduler,
		reporter:     ports.NopReporter{},
		logger:       logging.NewNop(),
		now:          time.Now,
		connectDelay: DefaultConnectDelay,
		dirtyDelay:   DefaultDirtyDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Seed loads the startup enumeration of the backend.
// Every discovered port is fresh so the first open can consider it.
func (e *Engine) Seed(snap domain.Snapshot) {
	for _, p := range snap.Ports {
		e.graph.AddPort(p.Name, p.Mode, p.Type)
	}
	for _, c := range snap.Connections {
		e.graph.AddConnection(c.From, c.To)
	}
	e.logger.Debug("Graph seeded", "ports", len(snap.Ports), "connections", len(snap.Connections))
}

// PortAdded handles a port registration.
func (e *Engine) PortAdded(name string, mode domain.PortMode, typ domain.PortType) {
	if !e.graph.AddPort(name, mode, typ) {
		e.logger.Debug("Duplicate port registration ignored", "port", name, "mode", mode)
		return
	}
	e.logger.Debug("Port added", "port", name, "mode", mode, "type", typ)
	e.scheduler.Schedule(TokenReconcile, e.connectDelay)
}

// PortRemoved handles a port de-registration.
func (e *Engine) PortRemoved(name string, mode domain.PortMode, typ domain.PortType) {
	if e.graph.RemovePort(name, mode, typ) {
		e.logger.Debug("Port removed", "port", name, "mode", mode, "type", typ)
	}
}

// PortRenamed handles a port rename.
func (e *Engine) PortRenamed(oldName, newName string, mode domain.PortMode, typ domain.PortType) {
	if !e.graph.RenamePort(oldName, newName, mode, typ) {
		e.logger.Debug("Rename of unknown port ignored", "port", oldName, "new_name", newName)
		return
	}
	e.logger.Debug("Port renamed", "port", oldName, "new_name", newName, "mode", mode)
	e.scheduler.Schedule(TokenReconcile, e.connectDelay)
}

// ConnectionAdded handles a connection created in the backend.
// While a backlog is pending it runs the next pass immediately.
func (e *Engine) ConnectionAdded(from, to string) {
	if !e.graph.AddConnection(from, to) {
		return
	}
	e.logger.Debug("Connection added", "from", from, "to", to)

	if e.inflight != nil && *e.inflight == (domain.Connection{From: from, To: to}) {
		e.inflight = nil
	}
	if e.pending {
		e.Reconcile(false)
	}
	e.scheduler.Schedule(TokenDirty, e.dirtyDelay)
}

// ConnectionRemoved handles a connection removed in the backend.
func (e *Engine) ConnectionRemoved(from, to string) {
	if !e.graph.RemoveConnection(from, to) {
		return
	}
	e.logger.Debug("Connection removed", "from", from, "to", to)
	e.scheduler.Schedule(TokenDirty, e.dirtyDelay)
}

// Fire runs the task scheduled under token.
func (e *Engine) Fire(token ports.Token) {
	switch token {
	case TokenReconcile:
		e.Reconcile(false)
	case TokenDirty:
		e.EvaluateDirty()
	default:
		e.logger.Warn("Unknown scheduled task", "token", token)
	}
}

// Graph exposes the live graph. Callers must not mutate it.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Desired returns a copy of the desired connection set.
func (e *Engine) Desired() domain.ConnectionSet {
	return e.desired.Clone()
}

// Pending reports whether a reconciliation backlog is being drained.
func (e *Engine) Pending() bool {
	return e.pending
}

// Dirty reports the dirty flag.
func (e *Engine) Dirty() bool {
	return e.dirty
}

// Path returns the persistence path of the opened session, if any.
func (e *Engine) Path() string {
	return e.path
}

// Status is a point-in-time view of the engine.
type Status struct {
	Path     string               `json:"path,omitempty"`
	Dirty    bool                 `json:"dirty"`
	Pending  bool                 `json:"pending"`
	InFlight *domain.Connection   `json:"in_flight,omitempty"`
	Ports    []domain.Port        `json:"ports"`
	Live     domain.ConnectionSet `json:"live"`
	Desired  domain.ConnectionSet `json:"desired"`
}

// Status snapshots the engine.
func (e *Engine) Status() Status {
	st := Status{
		Path:    e.path,
		Dirty:   e.dirty,
		Pending: e.pending,
		Ports:   e.graph.Ports(),
		Live:    e.graph.Connections(),
		Desired: e.desired.Clone(),
	}
	if e.inflight != nil {
		c := *e.inflight
		st.InFlight = &c
	}
	return st
}

func (e *Engine) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t}
}
