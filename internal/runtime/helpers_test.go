package runtime_test

import (
	"context"
	"time"

	"github.com/aretw0/jackpatch/internal/runtime"
	"github.com/aretw0/jackpatch/pkg/adapters/memory"
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/aretw0/jackpatch/pkg/ports"
)

// manualScheduler records pending tasks; tests fire them explicitly.
type manualScheduler struct {
	pending map[ports.Token]time.Duration
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{pending: make(map[ports.Token]time.Duration)}
}

func (s *manualScheduler) Schedule(token ports.Token, delay time.Duration) {
	s.pending[token] = delay
}

func (s *manualScheduler) scheduled(token ports.Token) bool {
	_, ok := s.pending[token]
	return ok
}

// fire runs the task if it is pending and reports whether it ran.
func (s *manualScheduler) fire(e *runtime.Engine, token ports.Token) bool {
	if !s.scheduled(token) {
		return false
	}
	delete(s.pending, token)
	e.Fire(token)
	return true
}

type recordingReporter struct {
	dirty []bool
	opens []error
	saves []error
}

func (r *recordingReporter) DirtyChanged(d bool) {
	r.dirty = append(r.dirty, d)
}

func (r *recordingReporter) OpenReplied(_ string, err error) {
	r.opens = append(r.opens, err)
}

func (r *recordingReporter) SaveReplied(_ string, err error) {
	r.saves = append(r.saves, err)
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (s failingStore) Load(context.Context, string) (domain.ConnectionSet, error) {
	return nil, s.err
}

func (s failingStore) Save(context.Context, string, domain.ConnectionSet) error {
	return s.err
}

// fataler is satisfied by *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

type fixture struct {
	engine    *runtime.Engine
	backend   *memory.Backend
	store     *memory.Store
	scheduler *manualScheduler
	reporter  *recordingReporter
}

func newFixture(t fataler, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	f := &fixture{
		backend:   memory.NewBackend(),
		store:     memory.NewStore(),
		scheduler: newManualScheduler(),
		reporter:  &recordingReporter{},
	}
	opts = append([]runtime.EngineOption{runtime.WithReporter(f.reporter)}, opts...)
	f.engine = runtime.NewEngine(f.backend, f.store, f.scheduler, opts...)
	return f
}

// open stores desired under project and opens it.
func (f *fixture) open(t fataler, project string, desired ...domain.Connection) {
	t.Helper()
	ctx := context.Background()
	if desired != nil {
		if err := f.store.Save(ctx, runtime.PatchPath(project), domain.NewConnectionSet(desired...)); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	if err := f.engine.Open(ctx, project); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
}

// confirmLast delivers the backend confirmation of the latest request.
func (f *fixture) confirmLast(t fataler) domain.Connection {
	t.Helper()
	reqs := f.backend.Requests()
	if len(reqs) == 0 {
		t.Fatalf("no request to confirm")
	}
	c := reqs[len(reqs)-1]
	f.engine.ConnectionAdded(c.From, c.To)
	return c
}

func out(name string) domain.Port {
	return domain.Port{Name: name, Mode: domain.PortModeOutput, Type: domain.PortTypeAudio}
}

func in(name string) domain.Port {
	return domain.Port{Name: name, Mode: domain.PortModeInput, Type: domain.PortTypeAudio}
}

func conn(from, to string) domain.Connection {
	return domain.Connection{From: from, To: to}
}

func addPorts(e *runtime.Engine, ps ...domain.Port) {
	for _, p := range ps {
		e.PortAdded(p.Name, p.Mode, p.Type)
	}
}
