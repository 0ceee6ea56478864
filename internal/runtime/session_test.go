package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/aretw0/jackpatch/internal/runtime"
	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesWithEveryLivePortEligible(t *testing.T) {
	f := newFixture(t)
	f.engine.Seed(domain.Snapshot{Ports: []domain.Port{out("a:out"), in("b:in")}})
	f.open(t, "first")

	// The first open drained the backlog, so no port is fresh anymore.
	for _, p := range f.engine.Graph().Ports() {
		require.False(t, p.Fresh)
	}

	f.open(t, "second", conn("a:out", "b:in"))
	assert.Equal(t, []domain.Connection{conn("a:out", "b:in")}, f.backend.Requests())
	assert.True(t, f.engine.Pending())
	assert.Equal(t, runtime.PatchPath("second"), f.engine.Path())
	assert.Equal(t, []error{nil, nil}, f.reporter.opens)
}

func TestOpen_DrainsWholeBacklogOnSettledGraph(t *testing.T) {
	f := newFixture(t)
	f.engine.Seed(domain.Snapshot{Ports: []domain.Port{
		out("sys:out1"), out("sys:out2"), out("sys:out3"),
		in("app:in1"), in("app:in2"), in("app:in3"),
	}})
	addPorts(f.engine, out("late:out"))
	require.True(t, f.scheduler.fire(f.engine, runtime.TokenReconcile))
	for _, p := range f.engine.Graph().Ports() {
		require.False(t, p.Fresh)
	}

	f.open(t, "session",
		conn("sys:out1", "app:in1"),
		conn("sys:out2", "app:in2"),
		conn("sys:out3", "app:in3"),
	)
	for i := 0; i < 3; i++ {
		f.confirmLast(t)
	}

	assert.Equal(t, []domain.Connection{
		conn("sys:out1", "app:in1"),
		conn("sys:out2", "app:in2"),
		conn("sys:out3", "app:in3"),
	}, f.backend.Requests())
	assert.False(t, f.engine.Pending())

	// Once drained, unrelated passes are back to the fresh filter.
	f.engine.ConnectionRemoved("sys:out1", "app:in1")
	f.engine.Reconcile(false)
	assert.Len(t, f.backend.Requests(), 3)
}

func TestOpen_ReplacesDesiredSet(t *testing.T) {
	f := newFixture(t)
	f.open(t, "one", conn("a", "b"))
	f.open(t, "two", conn("c", "d"))

	assert.Equal(t, domain.ConnectionSet{conn("c", "d")}, f.engine.Desired())

	f.open(t, "missing")
	assert.Empty(t, f.engine.Desired(), "a project without a patch opens empty")
}

func TestOpen_ReadFailureIsRecoverable(t *testing.T) {
	reporter := &recordingReporter{}
	cause := errors.New("permission denied")
	e := runtime.NewEngine(newFixture(t).backend, failingStore{err: cause}, newManualScheduler(), runtime.WithReporter(reporter))

	err := e.Open(context.Background(), "project")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistenceRead)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, e.Path(), "a failed open must not switch sessions")
	require.Len(t, reporter.opens, 1)
	assert.ErrorIs(t, reporter.opens[0], domain.ErrPersistenceRead)

	// Still usable.
	e.PortAdded("a:out", domain.PortModeOutput, domain.PortTypeAudio)
	assert.True(t, e.Graph().PortExists("a:out", domain.PortModeOutput))
}

func TestSave_MergeAndPrune(t *testing.T) {
	f := newFixture(t)
	f.engine.Seed(domain.Snapshot{
		Ports: []domain.Port{out("a:out"), in("b:in"), in("c:in"), out("manual:out")},
		Connections: domain.NewConnectionSet(
			conn("a:out", "b:in"),
			conn("manual:out", "c:in"),
		),
	})
	f.open(t, "session",
		conn("a:out", "b:in"),
		conn("a:out", "c:in"),
		conn("a:out", "offline:in"),
	)

	require.NoError(t, f.engine.Save(context.Background()))

	want := domain.NewConnectionSet(
		conn("a:out", "b:in"),
		conn("a:out", "offline:in"),
		conn("manual:out", "c:in"),
	)
	assert.True(t, want.Equal(f.engine.Desired()), "got %v", f.engine.Desired())

	stored, err := f.store.Load(context.Background(), runtime.PatchPath("session"))
	require.NoError(t, err)
	assert.True(t, want.Equal(stored))
	assert.Equal(t, []error{nil}, f.reporter.saves)
}

func TestSave_BeforeOpen(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Save(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
	assert.Equal(t, []error{domain.ErrNoSession}, f.reporter.saves)
	assert.Empty(t, f.store.Paths())
}

func TestSave_WriteFailureKeepsState(t *testing.T) {
	scheduler := newManualScheduler()
	reporter := &recordingReporter{}
	store := &switchStore{fixture: newFixture(t)}
	e := runtime.NewEngine(store.fixture.backend, store, scheduler, runtime.WithReporter(reporter))
	e.Seed(domain.Snapshot{Ports: []domain.Port{out("a:out"), in("b:in")}})
	require.NoError(t, store.fixture.store.Save(context.Background(), runtime.PatchPath("p"), domain.NewConnectionSet(conn("a:out", "b:in"))))
	require.NoError(t, e.Open(context.Background(), "p"))

	// The request was never confirmed: the pair would be pruned on save.
	scheduler.fire(e, runtime.TokenDirty)
	require.True(t, e.Dirty())

	store.failSave = errors.New("disk full")
	err := e.Save(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistenceWrite)
	assert.Equal(t, domain.ConnectionSet{conn("a:out", "b:in")}, e.Desired(), "desired set only changes after a successful write")
	assert.True(t, e.Dirty())

	store.failSave = nil
	require.NoError(t, e.Save(context.Background()))
	assert.Empty(t, e.Desired())
	assert.False(t, e.Dirty())
}

func TestMergeLive(t *testing.T) {
	g := domain.NewGraph()
	g.AddPort("x", domain.PortModeOutput, domain.PortTypeAudio)
	g.AddPort("y", domain.PortModeInput, domain.PortTypeAudio)

	// Reversed direction is not "both endpoints live".
	desired := domain.NewConnectionSet(conn("y", "x"), conn("x", "y"))
	merged := runtime.MergeLive(desired, nil, g.Index())

	assert.Equal(t, domain.ConnectionSet{conn("y", "x")}, merged)
	assert.Len(t, desired, 2, "input is not modified")
}

// switchStore delegates to the fixture's memory store until failSave is set.
type switchStore struct {
	fixture  *fixture
	failSave error
}

func (s *switchStore) Load(ctx context.Context, path string) (domain.ConnectionSet, error) {
	return s.fixture.store.Load(ctx, path)
}

func (s *switchStore) Save(ctx context.Context, path string, set domain.ConnectionSet) error {
	if s.failSave != nil {
		return s.failSave
	}
	return s.fixture.store.Save(ctx, path, set)
}

func TestSession_LogsEachOutcomeOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	f := newFixture(t, runtime.WithLogger(logger))
	f.engine.Seed(domain.Snapshot{Ports: []domain.Port{out("a:out"), in("b:in")}})

	f.open(t, "session", conn("a:out", "b:in"))
	require.NoError(t, f.engine.Save(context.Background()))

	logs := buf.String()
	assert.Equal(t, 1, strings.Count(logs, "Session opened"))
	assert.Equal(t, 1, strings.Count(logs, "Session saved"))
	assert.Equal(t, 1, strings.Count(logs, "Connect requested"))
	assert.Equal(t, 3, strings.Count(logs, "\n"), "one line per event")
}
