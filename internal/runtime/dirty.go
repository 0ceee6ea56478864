package runtime

import "github.com/aretw0/jackpatch/pkg/domain"

// EvaluateDirty recomputes the dirty flag after the debounce window.
// Once dirty, the flag stays set until an open or save clears it.
func (e *Engine) EvaluateDirty() bool {
	if e.dirty {
		return true
	}
	if e.divergent() {
		e.setDirty(true)
	}
	return e.dirty
}

// divergent reports whether the live graph departs from the desired set in a
// way the user can act on: a live connection the set does not know, or a
// desired connection whose two ports are live but not connected. Desired
// connections naming an absent port do not count.
func (e *Engine) divergent() bool {
	for _, c := range e.graph.Connections() {
		if !e.desired.Contains(c) {
			return true
		}
	}

	idx := e.graph.Index()
	for _, c := range e.desired {
		if idx.Routable(c) && !e.graph.ConnectionExists(c.From, c.To) {
			return true
		}
	}
	return false
}

func (e *Engine) setDirty(dirty bool) {
	if e.dirty == dirty {
		return
	}
	e.dirty = dirty
	e.reporter.DirtyChanged(dirty)
	if e.hooks.OnDirtyChange != nil {
		e.hooks.OnDirtyChange(&domain.DirtyEvent{
			EventBase: e.base(domain.EventDirtyChange),
			Dirty:     dirty,
		})
	}
}
