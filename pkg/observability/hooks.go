package observability

import (
	"log/slog"

	"github.com/aretw0/jackpatch/pkg/domain"
)

// LogHooks traces reconcile passes at Debug.
// Connect requests and session outcomes are already logged by the engine
// and dirty transitions by the session reporter, so they are left out.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPass: func(e *domain.PassEvent) {
			logger.Debug("reconcile pass", "issued", e.Issued, "forced", e.Forced, "pending", e.Pending)
		},
	}
}

// Chain fans every event out to all hook sets, in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnConnectRequest = chain(out.OnConnectRequest, h.OnConnectRequest)
		out.OnPass = chain(out.OnPass, h.OnPass)
		out.OnDirtyChange = chain(out.OnDirtyChange, h.OnDirtyChange)
		out.OnOpen = chain(out.OnOpen, h.OnOpen)
		out.OnSave = chain(out.OnSave, h.OnSave)
	}
	return out
}

func chain[E any](a, b func(*E)) func(*E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e *E) {
		a(e)
		b(e)
	}
}
