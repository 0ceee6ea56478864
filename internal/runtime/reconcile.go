package runtime

import (
	"github.com/aretw0/jackpatch/pkg/domain"
)

// Reconcile runs one pass of the convergence loop.
//
// It issues at most one connect request: the first desired connection that is
// not live, whose endpoints are both live with the right direction and that
// touches a fresh port (any live port when force is set). When it issues a
// request the backlog is marked pending. When nothing is eligible the backlog
// has drained: pending is cleared along with every fresh flag.
//
// A forced pass that issues a request keeps the whole backlog forced: the
// passes that follow each confirmation ignore the fresh filter until one
// finds nothing left to request.
//
// While the previous request is still unconfirmed the pass issues nothing,
// so a single request is ever outstanding.
func (e *Engine) Reconcile(force bool) (domain.Connection, bool) {
	idx := e.graph.Index()
	force = force || e.forced

	if e.awaiting(idx) {
		e.logger.Debug("Pass deferred, request in flight", "from", e.inflight.From, "to", e.inflight.To)
		e.emitPass(false, force)
		return domain.Connection{}, false
	}

	for start := 0; ; {
		i, found := e.nextEligible(start, idx, force)
		if !found {
			break
		}
		c := e.desired[i]
		start = i + 1

		err := e.backend.Connect(c.From, c.To)
		e.emitConnect(c, false, err)
		if err != nil {
			e.logger.Warn("Connect request rejected", "from", c.From, "to", c.To, "err", err)
			continue
		}

		e.logger.Info("Connect requested", "from", c.From, "to", c.To)
		e.pending = true
		e.forced = force
		e.inflight = &c
		e.emitPass(true, force)
		return c, true
	}

	e.pending = false
	e.forced = false
	e.inflight = nil
	e.graph.ClearFresh()
	e.emitPass(false, force)
	return domain.Connection{}, false
}

// awaiting reports whether the last issued request is still unconfirmed and
// still meaningful. A request whose pair became live or lost an endpoint is
// forgotten.
func (e *Engine) awaiting(idx domain.PortIndex) bool {
	if e.inflight == nil {
		return false
	}
	c := *e.inflight
	if e.graph.ConnectionExists(c.From, c.To) || !idx.Routable(c) || !e.desired.Contains(c) {
		e.inflight = nil
		return false
	}
	return true
}

// nextEligible searches the desired set from position start for the first
// connection a pass may request.
func (e *Engine) nextEligible(start int, idx domain.PortIndex, force bool) (int, bool) {
	for i := start; i < len(e.desired); i++ {
		c := e.desired[i]
		if e.graph.ConnectionExists(c.From, c.To) || !idx.Routable(c) {
			continue
		}
		if force || idx.TouchesFresh(c) {
			return i, true
		}
	}
	return -1, false
}

// ConnectAllSaved requests every desired connection involving the named port
// against all live ports of the opposite direction, without the one-per-pass
// throttle or the fresh filter. It returns the number of requests sent.
//
// It is never invoked by the event path.
func (e *Engine) ConnectAllSaved(name string, mode domain.PortMode) int {
	if !e.graph.PortExists(name, mode) {
		return 0
	}
	idx := e.graph.Index()

	sent := 0
	for _, c := range e.desired {
		if e.graph.ConnectionExists(c.From, c.To) {
			continue
		}
		switch mode {
		case domain.PortModeOutput:
			if c.From != name || !idx.Inputs[c.To] {
				continue
			}
		case domain.PortModeInput:
			if c.To != name || !idx.Outputs[c.From] {
				continue
			}
		default:
			return sent
		}

		err := e.backend.Connect(c.From, c.To)
		e.emitConnect(c, true, err)
		if err != nil {
			e.logger.Warn("Connect request rejected", "from", c.From, "to", c.To, "err", err)
			continue
		}
		sent++
	}
	e.logger.Info("Saved connections requested", "port", name, "mode", mode, "count", sent)
	return sent
}

func (e *Engine) emitConnect(c domain.Connection, bulk bool, err error) {
	if e.hooks.OnConnectRequest != nil {
		e.hooks.OnConnectRequest(&domain.ConnectEvent{
			EventBase:  e.base(domain.EventConnectRequest),
			Connection: c,
			Bulk:       bulk,
			Err:        err,
		})
	}
}

func (e *Engine) emitPass(issued, forced bool) {
	if e.hooks.OnPass != nil {
		e.hooks.OnPass(&domain.PassEvent{
			EventBase: e.base(domain.EventPass),
			Issued:    issued,
			Forced:    forced,
			Pending:   e.pending,
		})
	}
}
