package runtime

import (
	"sort"
	"time"

	"github.com/aretw0/jackpatch/pkg/ports"
)

// DelayQueue holds single-shot tasks keyed by token.
// Scheduling a pending token moves its deadline instead of adding a second
// entry, which gives restart-on-retrigger debouncing.
type DelayQueue struct {
	deadlines map[ports.Token]time.Time
}

// NewDelayQueue creates an empty queue.
func NewDelayQueue() *DelayQueue {
	return &DelayQueue{deadlines: make(map[ports.Token]time.Time)}
}

// Schedule sets the deadline of token, replacing any pending one.
func (q *DelayQueue) Schedule(token ports.Token, deadline time.Time) {
	q.deadlines[token] = deadline
}

// Cancel drops token and reports whether it was pending.
func (q *DelayQueue) Cancel(token ports.Token) bool {
	_, ok := q.deadlines[token]
	delete(q.deadlines, token)
	return ok
}

// Len returns the number of pending tasks.
func (q *DelayQueue) Len() int {
	return len(q.deadlines)
}

// Next returns the earliest pending deadline.
func (q *DelayQueue) Next() (time.Time, bool) {
	var next time.Time
	found := false
	for _, d := range q.deadlines {
		if !found || d.Before(next) {
			next, found = d, true
		}
	}
	return next, found
}

// PopDue removes and returns the tokens due at now, earliest first.
func (q *DelayQueue) PopDue(now time.Time) []ports.Token {
	var due []ports.Token
	for tok, d := range q.deadlines {
		if !d.After(now) {
			due = append(due, tok)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		di, dj := q.deadlines[due[i]], q.deadlines[due[j]]
		if di.Equal(dj) {
			return due[i] < due[j]
		}
		return di.Before(dj)
	})
	for _, tok := range due {
		delete(q.deadlines, tok)
	}
	return due
}
