package domain

import "errors"

// ErrBackendUnavailable is returned when the audio graph backend cannot be reached at startup.
var ErrBackendUnavailable = errors.New("audio backend unavailable")

// ErrBackendShutdown is returned when the audio graph backend goes away while running.
var ErrBackendShutdown = errors.New("audio backend shut down")

// ErrPersistenceRead wraps failures to read a saved patch.
var ErrPersistenceRead = errors.New("unable to read patch")

// ErrPersistenceWrite wraps failures to write a patch.
var ErrPersistenceWrite = errors.New("unable to write patch")

// ErrPatchNotFound is returned by a store that holds no document for a path.
var ErrPatchNotFound = errors.New("patch not found")

// ErrNoSession is returned when saving before any session was opened.
var ErrNoSession = errors.New("no session opened")

// ErrStopped is returned when a command reaches a patcher that is not running.
var ErrStopped = errors.New("patcher stopped")
