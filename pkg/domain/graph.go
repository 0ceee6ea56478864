package domain

// Graph holds the live registries of ports and connections.
// It mirrors the backend and is mutated only in response to backend events.
// Every mutation is idempotent: duplicate or missing-target calls are no-ops
// reported through the boolean result, never errors.
//
// Graph is not safe for concurrent use.
type Graph struct {
	ports []*Port
	conns ConnectionSet
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

func (g *Graph) find(name string, mode PortMode) int {
	for i, p := range g.ports {
		if p.Name == name && p.Mode == mode {
			return i
		}
	}
	return -1
}

// AddPort registers a port and marks it fresh.
// It returns false if a port with the same name and mode already exists.
func (g *Graph) AddPort(name string, mode PortMode, typ PortType) bool {
	if g.find(name, mode) >= 0 {
		return false
	}
	g.ports = append(g.ports, &Port{Name: name, Mode: mode, Type: typ, Fresh: true})
	return true
}

// RemovePort removes the port matching name, mode and type.
func (g *Graph) RemovePort(name string, mode PortMode, typ PortType) bool {
	i := g.find(name, mode)
	if i < 0 || g.ports[i].Type != typ {
		return false
	}
	g.ports = append(g.ports[:i], g.ports[i+1:]...)
	return true
}

// RenamePort renames the port matching oldName, mode and type and marks it
// fresh. A rename whose source is gone is ignored, since it may race with an
// earlier removal. If a port named newName already exists in that mode the
// old entry is dropped and the existing one is marked fresh instead.
func (g *Graph) RenamePort(oldName, newName string, mode PortMode, typ PortType) bool {
	i := g.find(oldName, mode)
	if i < 0 || g.ports[i].Type != typ {
		return false
	}
	if oldName == newName {
		g.ports[i].Fresh = true
		return true
	}
	if j := g.find(newName, mode); j >= 0 {
		g.ports[j].Fresh = true
		g.ports = append(g.ports[:i], g.ports[i+1:]...)
		return true
	}
	g.ports[i].Name = newName
	g.ports[i].Fresh = true
	return true
}

// PortExists reports whether a port with name and mode is live.
func (g *Graph) PortExists(name string, mode PortMode) bool {
	return g.find(name, mode) >= 0
}

// Port returns a copy of the port with name and mode.
func (g *Graph) Port(name string, mode PortMode) (Port, bool) {
	i := g.find(name, mode)
	if i < 0 {
		return Port{}, false
	}
	return *g.ports[i], true
}

// Ports returns a copy of all live ports in registration order.
func (g *Graph) Ports() []Port {
	out := make([]Port, 0, len(g.ports))
	for _, p := range g.ports {
		out = append(out, *p)
	}
	return out
}

// ClearFresh resets the fresh flag of every port.
func (g *Graph) ClearFresh() {
	for _, p := range g.ports {
		p.Fresh = false
	}
}

// AddConnection records a live connection if the pair is absent.
func (g *Graph) AddConnection(from, to string) bool {
	return g.conns.Add(Connection{From: from, To: to})
}

// RemoveConnection removes the matching live connection.
func (g *Graph) RemoveConnection(from, to string) bool {
	return g.conns.Remove(Connection{From: from, To: to})
}

// ConnectionExists reports whether the pair is live.
func (g *Graph) ConnectionExists(from, to string) bool {
	return g.conns.Contains(Connection{From: from, To: to})
}

// Connections returns a copy of the live connection set.
func (g *Graph) Connections() ConnectionSet {
	return g.conns.Clone()
}

// Index builds a name lookup of the live ports, split by direction.
func (g *Graph) Index() PortIndex {
	idx := PortIndex{
		Outputs:      make(map[string]bool),
		Inputs:       make(map[string]bool),
		FreshOutputs: make(map[string]bool),
		FreshInputs:  make(map[string]bool),
	}
	for _, p := range g.ports {
		switch p.Mode {
		case PortModeOutput:
			idx.Outputs[p.Name] = true
			if p.Fresh {
				idx.FreshOutputs[p.Name] = true
			}
		case PortModeInput:
			idx.Inputs[p.Name] = true
			if p.Fresh {
				idx.FreshInputs[p.Name] = true
			}
		}
	}
	return idx
}

// PortIndex is a point-in-time lookup of live port names.
type PortIndex struct {
	Outputs      map[string]bool
	Inputs       map[string]bool
	FreshOutputs map[string]bool
	FreshInputs  map[string]bool
}

// Routable reports whether both endpoints of c are live with the right direction.
func (idx PortIndex) Routable(c Connection) bool {
	return idx.Outputs[c.From] && idx.Inputs[c.To]
}

// TouchesFresh reports whether either endpoint of c is flagged fresh.
func (idx PortIndex) TouchesFresh(c Connection) bool {
	return idx.FreshOutputs[c.From] || idx.FreshInputs[c.To]
}
