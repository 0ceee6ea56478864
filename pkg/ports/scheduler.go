package ports

import "time"

// Token identifies a scheduled task.
type Token string

// Scheduler runs single-shot tasks keyed by token.
// Scheduling a token that is already pending replaces its deadline; it never
// queues a second firing.
type Scheduler interface {
	Schedule(token Token, delay time.Duration)
}
