package ports

// SessionReporter is the session-lifecycle collaborator.
type SessionReporter interface {
	// DirtyChanged is called on every edge transition of the dirty flag.
	DirtyChanged(dirty bool)
	// OpenReplied acknowledges an open; err is nil on success.
	OpenReplied(path string, err error)
	// SaveReplied acknowledges a save; err is nil on success.
	SaveReplied(path string, err error)
}

// NopReporter discards every notification.
type NopReporter struct{}

func (NopReporter) DirtyChanged(bool) {}

func (NopReporter) OpenReplied(string, error) {}

func (NopReporter) SaveReplied(string, error) {}
