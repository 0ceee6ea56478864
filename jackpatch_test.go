package jackpatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/aretw0/jackpatch"
	"github.com/aretw0/jackpatch/pkg/adapters/memory"
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type syncReporter struct {
	mu    sync.Mutex
	dirty []bool
	saves int
}

func (r *syncReporter) DirtyChanged(d bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = append(r.dirty, d)
}

func (r *syncReporter) OpenReplied(string, error) {}

func (r *syncReporter) SaveReplied(string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
}

func (r *syncReporter) lastDirty() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dirty) == 0 {
		return false, false
	}
	return r.dirty[len(r.dirty)-1], true
}

func out(name string) domain.Port {
	return domain.Port{Name: name, Mode: domain.PortModeOutput, Type: domain.PortTypeAudio}
}

func in(name string) domain.Port {
	return domain.Port{Name: name, Mode: domain.PortModeInput, Type: domain.PortTypeAudio}
}

type harness struct {
	patcher  *jackpatch.Patcher
	backend  *memory.Backend
	store    *memory.Store
	clock    *fakeclock.FakeClock
	reporter *syncReporter
	errc     chan error
	cancel   context.CancelFunc
}

func start(t *testing.T, backend *memory.Backend, store *memory.Store) *harness {
	t.Helper()
	h := &harness{
		backend:  backend,
		store:    store,
		clock:    fakeclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		reporter: &syncReporter{},
		errc:     make(chan error, 1),
	}
	h.patcher = jackpatch.New(backend, store,
		jackpatch.WithClock(h.clock),
		jackpatch.WithReporter(h.reporter),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- h.patcher.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.patcher.Done()
	})
	return h
}

// advance moves the fake clock until cond holds.
func (h *harness) advance(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		if cond() {
			return true
		}
		h.clock.Increment(100 * time.Millisecond)
		return cond()
	}, waitFor, tick)
}

func TestPatcher_OpenRestoresPatch(t *testing.T) {
	backend := memory.NewBackend(
		memory.WithAutoAck(),
		memory.WithPorts(out("system:capture_1"), out("system:capture_2"), in("app:in_l"), in("app:in_r")),
	)
	store := memory.NewStore()
	want := domain.NewConnectionSet(
		domain.Connection{From: "system:capture_1", To: "app:in_l"},
		domain.Connection{From: "system:capture_2", To: "app:in_r"},
	)
	require.NoError(t, store.Save(context.Background(), "/s/jackpatch.xml", want))

	h := start(t, backend, store)
	require.NoError(t, h.patcher.Open(context.Background(), "/s/jackpatch"))

	require.Eventually(t, func() bool { return backend.Connections().Equal(want) }, waitFor, tick)
	assert.Len(t, backend.Requests(), 2, "each saved pair is requested once")

	st, err := h.patcher.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/s/jackpatch.xml", st.Path)
	assert.False(t, st.Pending)
	assert.Nil(t, st.InFlight)
}

func TestPatcher_LateClientIsPatched(t *testing.T) {
	backend := memory.NewBackend(memory.WithAutoAck(), memory.WithPorts(out("system:capture_1")))
	store := memory.NewStore()
	want := domain.Connection{From: "system:capture_1", To: "synth:in"}
	require.NoError(t, store.Save(context.Background(), "/s/jackpatch.xml", domain.ConnectionSet{want}))

	h := start(t, backend, store)
	require.NoError(t, h.patcher.Open(context.Background(), "/s/jackpatch"))
	assert.Empty(t, backend.Requests(), "synth is not running yet")

	backend.AddPort("synth:in", domain.PortModeInput, domain.PortTypeAudio)

	h.advance(t, func() bool { return backend.Connections().Contains(want) })
}

func TestPatcher_DirtyAfterManualChange(t *testing.T) {
	backend := memory.NewBackend(
		memory.WithAutoAck(),
		memory.WithPorts(out("a:out"), in("b:in")),
	)
	h := start(t, backend, memory.NewStore())
	require.NoError(t, h.patcher.Open(context.Background(), "/s/jackpatch"))

	backend.Patch("a:out", "b:in")
	h.advance(t, func() bool {
		d, ok := h.reporter.lastDirty()
		return ok && d
	})

	require.NoError(t, h.patcher.Save(context.Background()))
	d, _ := h.reporter.lastDirty()
	assert.False(t, d)

	saved, err := h.store.Load(context.Background(), "/s/jackpatch.xml")
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionSet{{From: "a:out", To: "b:in"}}, saved)
}

func TestPatcher_SaveBeforeOpen(t *testing.T) {
	h := start(t, memory.NewBackend(), memory.NewStore())
	assert.ErrorIs(t, h.patcher.Save(context.Background()), domain.ErrNoSession)
}

func TestPatcher_ConnectAllSaved(t *testing.T) {
	backend := memory.NewBackend(memory.WithPorts(out("synth:out"), in("mix:1"), in("mix:2")))
	store := memory.NewStore()
	require.NoError(t, store.Save(context.Background(), "/s/jackpatch.xml", domain.NewConnectionSet(
		domain.Connection{From: "synth:out", To: "mix:1"},
		domain.Connection{From: "synth:out", To: "mix:2"},
	)))

	h := start(t, backend, store)
	require.NoError(t, h.patcher.Open(context.Background(), "/s/jackpatch"))

	n, err := h.patcher.ConnectAllSaved(context.Background(), "synth:out", domain.PortModeOutput)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPatcher_BackendShutdown(t *testing.T) {
	backend := memory.NewBackend()
	h := start(t, backend, memory.NewStore())
	_, err := h.patcher.Status(context.Background())
	require.NoError(t, err)

	require.NoError(t, backend.Close())

	select {
	case err := <-h.errc:
		assert.ErrorIs(t, err, domain.ErrBackendShutdown)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after shutdown")
	}

	assert.ErrorIs(t, h.patcher.Save(context.Background()), domain.ErrStopped)
}

func TestPatcher_BackendUnavailable(t *testing.T) {
	backend := memory.NewBackend()
	require.NoError(t, backend.Close())

	p := jackpatch.New(backend, memory.NewStore())
	err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestPatcher_Cancel(t *testing.T) {
	h := start(t, memory.NewBackend(), memory.NewStore())
	_, err := h.patcher.Status(context.Background())
	require.NoError(t, err)

	h.cancel()
	assert.ErrorIs(t, <-h.errc, context.Canceled)
	assert.ErrorIs(t, jackpatch.New(h.backend, h.store).Run(canceled()), context.Canceled)
}

func TestPatcher_RunTwice(t *testing.T) {
	h := start(t, memory.NewBackend(), memory.NewStore())
	_, err := h.patcher.Status(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, h.patcher.Run(context.Background()), jackpatch.ErrAlreadyRunning)
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
