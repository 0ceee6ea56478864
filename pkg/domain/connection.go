package domain

// Connection is a directed edge from an output port to an input port,
// identified by full port names.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (c Connection) String() string {
	return c.From + " -> " + c.To
}

// ConnectionSet is an ordered sequence of connections without duplicate pairs.
// The zero value is an empty set ready to use.
type ConnectionSet []Connection

// NewConnectionSet builds a set from conns, dropping duplicate pairs.
func NewConnectionSet(conns ...Connection) ConnectionSet {
	var s ConnectionSet
	for _, c := range conns {
		s.Add(c)
	}
	return s
}

// Contains reports whether c is in the set.
func (s ConnectionSet) Contains(c Connection) bool {
	return s.Index(c) >= 0
}

// Index returns the position of c, or -1.
func (s ConnectionSet) Index(c Connection) int {
	for i, x := range s {
		if x == c {
			return i
		}
	}
	return -1
}

// Add appends c if absent and reports whether it was added.
func (s *ConnectionSet) Add(c Connection) bool {
	if s.Contains(c) {
		return false
	}
	*s = append(*s, c)
	return true
}

// Remove deletes c and reports whether it was present.
func (s *ConnectionSet) Remove(c Connection) bool {
	i := s.Index(c)
	if i < 0 {
		return false
	}
	*s = append((*s)[:i], (*s)[i+1:]...)
	return true
}

// Clone returns an independent copy.
func (s ConnectionSet) Clone() ConnectionSet {
	if s == nil {
		return nil
	}
	out := make(ConnectionSet, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both sets hold the same pairs, irrespective of order.
func (s ConnectionSet) Equal(other ConnectionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for _, c := range s {
		if !other.Contains(c) {
			return false
		}
	}
	return true
}
