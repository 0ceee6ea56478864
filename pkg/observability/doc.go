/*
Package observability turns patcher lifecycle events into metrics and logs.

Metrics exposes Prometheus collectors fed by domain.LifecycleHooks, and
LogHooks traces reconcile passes to a slog.Logger. Both can be combined with
Chain and passed to the patcher as a single set of hooks.
*/
package observability
