/*
Package jackpatch keeps the connections of a JACK audio/MIDI graph in line
with a saved patch.

A Patcher watches the live graph through a backend, remembers which
connections the session wants, and re-creates them as clients come and go.
Connect requests are issued one at a time: the next request goes out only
once the previous one is mirrored back by the server, which keeps bursty
client startups from flooding it.

# Concept

The live graph (ports and connections) is owned by the backend and mirrored
through events. The desired set is owned by the session: it is loaded on
Open and rewritten on Save, merging connections made by hand and dropping
the ones that were deliberately removed. Between the two, a dirty flag tells
the session manager whether there is anything worth saving.

# Usage

	backend, err := jackdbus.Dial()
	if err != nil {
		log.Fatal(err)
	}
	p := jackpatch.New(backend, file.New(), jackpatch.WithLogger(logger))

	go func() {
		if err := p.Open(ctx, "/path/to/session/jackpatch"); err != nil {
			logger.Error("open failed", "err", err)
		}
	}()

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}

Open and Save block until the event loop has executed them, so they may be
called from any goroutine, including signal handlers and HTTP handlers.
*/
package jackpatch
