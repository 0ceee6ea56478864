package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/jackpatch/pkg/domain"
)

// PatchExtension is appended to a project path to locate its patch document.
const PatchExtension = ".xml"

// PatchPath derives the persistence path of a project.
func PatchPath(projectPath string) string {
	return projectPath + PatchExtension
}

// Open replaces the desired set with the patch saved for projectPath and
// applies it: one pass runs immediately with every live port eligible, the
// dirty flag is cleared and dirty evaluation is re-armed.
//
// A missing patch opens an empty set. A read failure leaves the engine
// untouched and is returned wrapped in domain.ErrPersistenceRead.
func (e *Engine) Open(ctx context.Context, projectPath string) error {
	start := e.now()
	path := PatchPath(projectPath)

	set, err := e.store.Load(ctx, path)
	if errors.Is(err, domain.ErrPatchNotFound) {
		set, err = nil, nil
	}
	if err != nil {
		err = fmt.Errorf("%w %s: %w", domain.ErrPersistenceRead, path, err)
		e.logger.Warn("Open failed", "path", path, "err", err)
		e.finishSession(domain.EventOpen, path, start, err)
		return err
	}

	e.path = path
	e.desired = domain.NewConnectionSet(set...)
	e.pending = false
	e.forced = false
	e.inflight = nil

	e.Reconcile(true)
	e.setDirty(false)
	e.scheduler.Schedule(TokenDirty, e.dirtyDelay)

	e.logger.Info("Session opened", "path", path, "connections", len(e.desired), "duration", e.now().Sub(start))
	e.finishSession(domain.EventOpen, path, start, nil)
	return nil
}

// Save merges the live graph into the desired set, prunes connections the
// user removed and writes the result. The desired set only changes once the
// write succeeded; a write failure is returned wrapped in
// domain.ErrPersistenceWrite.
func (e *Engine) Save(ctx context.Context) error {
	start := e.now()
	if e.path == "" {
		e.logger.Warn("Save requested before open", "err", domain.ErrNoSession)
		e.finishSession(domain.EventSave, "", start, domain.ErrNoSession)
		return domain.ErrNoSession
	}

	next := MergeLive(e.desired, e.graph.Connections(), e.graph.Index())
	if err := e.store.Save(ctx, e.path, next); err != nil {
		err = fmt.Errorf("%w %s: %w", domain.ErrPersistenceWrite, e.path, err)
		e.logger.Warn("Save failed", "path", e.path, "err", err)
		e.finishSession(domain.EventSave, e.path, start, err)
		return err
	}

	e.desired = next
	e.setDirty(false)
	e.scheduler.Schedule(TokenDirty, e.dirtyDelay)

	e.logger.Info("Session saved", "path", e.path, "connections", len(next), "duration", e.now().Sub(start))
	e.finishSession(domain.EventSave, e.path, start, nil)
	return nil
}

// MergeLive computes the desired set to persist. Every live connection is
// added. A desired connection is dropped when both its ports are live with
// the right direction but it is not connected; connections naming an absent
// port are kept so they can be applied once the port comes back.
func MergeLive(desired, live domain.ConnectionSet, idx domain.PortIndex) domain.ConnectionSet {
	merged := desired.Clone()
	for _, c := range live {
		merged.Add(c)
	}

	out := make(domain.ConnectionSet, 0, len(merged))
	for _, c := range merged {
		if idx.Routable(c) && !live.Contains(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (e *Engine) finishSession(t domain.EventType, path string, start time.Time, err error) {
	reply, hook := e.reporter.SaveReplied, e.hooks.OnSave
	if t == domain.EventOpen {
		reply, hook = e.reporter.OpenReplied, e.hooks.OnOpen
	}
	reply(path, err)

	if hook != nil {
		hook(&domain.SessionEvent{
			EventBase:   e.base(t),
			Path:        path,
			Connections: len(e.desired),
			Duration:    e.now().Sub(start),
			Err:         err,
		})
	}
}
