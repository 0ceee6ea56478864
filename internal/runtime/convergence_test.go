package runtime_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/jackpatch/internal/runtime"
	"github.com/aretw0/jackpatch/pkg/domain"
	"pgregory.net/rapid"
)

// Every desired connection whose endpoints all appear is requested exactly
// once, whatever the interleaving of registrations, timer firings and server
// confirmations, and never more than one request is outstanding.
func TestReconcile_ConvergesUnderAnyInterleaving(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "pairs")

		var desired []domain.Connection
		var all []domain.Port
		for i := 0; i < n; i++ {
			c := conn(fmt.Sprintf("src%d:out", i), fmt.Sprintf("dst%d:in", i))
			desired = append(desired, c)
			all = append(all, out(c.From), in(c.To))
		}
		seeded := rapid.IntRange(0, len(all)).Draw(rt, "seeded")
		order := rapid.Permutation(all).Draw(rt, "order")

		settledFirst := rapid.Bool().Draw(rt, "settledFirst")

		f := newFixture(rt)
		f.engine.Seed(domain.Snapshot{Ports: order[:seeded]})
		if settledFirst {
			// A pass ran before the open and cleared every fresh flag.
			f.engine.PortAdded("monitor:out", domain.PortModeOutput, domain.PortTypeAudio)
			f.scheduler.fire(f.engine, runtime.TokenReconcile)
		}
		f.open(rt, "session", desired...)
		remaining := order[seeded:]
		confirmed := 0

		outstanding := func() int {
			return len(f.backend.Requests()) - confirmed
		}
		confirm := func() {
			reqs := f.backend.Requests()
			c := reqs[confirmed]
			confirmed++
			f.engine.ConnectionAdded(c.From, c.To)
		}

		for steps := 0; steps < 10*len(all)+20; steps++ {
			switch rapid.IntRange(0, 2).Draw(rt, "action") {
			case 0:
				if len(remaining) > 0 {
					p := remaining[0]
					remaining = remaining[1:]
					f.engine.PortAdded(p.Name, p.Mode, p.Type)
				}
			case 1:
				f.scheduler.fire(f.engine, runtime.TokenReconcile)
			case 2:
				if outstanding() > 0 {
					confirm()
				}
			}
			if outstanding() > 1 {
				rt.Fatalf("%d requests outstanding", outstanding())
			}
		}

		// Let the remaining clients start, then settle.
		for _, p := range remaining {
			f.engine.PortAdded(p.Name, p.Mode, p.Type)
		}
	settle:
		for guard := 0; guard < 4*len(all)+4; guard++ {
			switch {
			case outstanding() > 0:
				confirm()
			case f.scheduler.fire(f.engine, runtime.TokenReconcile):
			default:
				break settle
			}
			if outstanding() > 1 {
				rt.Fatalf("%d requests outstanding", outstanding())
			}
		}

		reqs := f.backend.Requests()
		if len(reqs) != n {
			rt.Fatalf("expected %d requests, got %v", n, reqs)
		}
		seen := map[domain.Connection]bool{}
		for _, r := range reqs {
			if seen[r] {
				rt.Fatalf("pair %v requested twice", r)
			}
			seen[r] = true
		}
		if f.engine.Pending() {
			rt.Fatalf("backlog not drained")
		}
	})
}

func TestSave_MergeLaw(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		names := []string{"a", "b", "c", "d"}
		g := domain.NewGraph()
		for _, name := range names {
			if rapid.Bool().Draw(rt, "out_"+name) {
				g.AddPort(name+":out", domain.PortModeOutput, domain.PortTypeAudio)
			}
			if rapid.Bool().Draw(rt, "in_"+name) {
				g.AddPort(name+":in", domain.PortModeInput, domain.PortTypeAudio)
			}
		}

		genConn := rapid.Custom(func(t *rapid.T) domain.Connection {
			return conn(
				rapid.SampledFrom(names).Draw(t, "from")+":out",
				rapid.SampledFrom(names).Draw(t, "to")+":in",
			)
		})
		desired := domain.NewConnectionSet(rapid.SliceOf(genConn).Draw(rt, "desired")...)
		live := domain.NewConnectionSet(rapid.SliceOf(genConn).Draw(rt, "live")...)

		idx := g.Index()
		saved := runtime.MergeLive(desired, live, idx)

		for _, c := range live {
			if !saved.Contains(c) {
				rt.Fatalf("live connection %v lost", c)
			}
		}
		for _, c := range desired {
			dropped := !saved.Contains(c)
			mayDrop := idx.Routable(c) && !live.Contains(c)
			if dropped != mayDrop {
				rt.Fatalf("connection %v: dropped=%v, both ports live and disconnected=%v", c, dropped, mayDrop)
			}
		}
	})
}
