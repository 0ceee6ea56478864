package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/jackpatch/pkg/domain"
)

// PatchView is the data drawn by GenerateMermaid.
type PatchView struct {
	Ports   []domain.Port        `json:"ports,omitempty"`
	Live    domain.ConnectionSet `json:"live,omitempty"`
	Desired domain.ConnectionSet `json:"desired"`
}

// GenerateMermaid produces a left-to-right Mermaid flowchart of a patch.
// Ports are grouped into one subgraph per client. Edges are styled by state:
// - saved and live: thick arrow
// - live only (unsaved): plain arrow
// - saved only (waiting for a port or a connect): dotted arrow
// Fresh ports are highlighted.
func GenerateMermaid(v PatchView) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	ids := make(map[string]string)
	id := func(name string) string {
		if s, ok := ids[name]; ok {
			return s
		}
		s := fmt.Sprintf("p%d", len(ids))
		ids[name] = s
		return s
	}

	var clients []string
	byClient := make(map[string][]domain.Port)
	for _, p := range v.Ports {
		client, _ := splitClient(p.Name)
		if _, ok := byClient[client]; !ok {
			clients = append(clients, client)
		}
		byClient[client] = append(byClient[client], p)
	}

	var fresh []string
	for _, client := range clients {
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", sanitizeMermaidID("c_"+client), escape(client)))
		for _, p := range byClient[client] {
			_, short := splitClient(p.Name)
			opener, closer := "[", "]"
			if p.Mode == domain.PortModeInput {
				opener, closer = "[/", "/]"
			}
			if p.Type == domain.PortTypeMIDI {
				short += " ♪"
			}
			sb.WriteString(fmt.Sprintf("        %s%s\"%s\"%s\n", id(p.Name), opener, escape(short), closer))
			if p.Fresh {
				fresh = append(fresh, id(p.Name))
			}
		}
		sb.WriteString("    end\n")
	}

	for _, c := range v.Live {
		arrow := "-->"
		if v.Desired.Contains(c) {
			arrow = "==>"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", id(c.From), arrow, id(c.To)))
	}
	for _, c := range v.Desired {
		if v.Live.Contains(c) {
			continue
		}
		// Endpoints that are not live get a standalone node.
		for _, name := range []string{c.From, c.To} {
			if _, ok := ids[name]; !ok {
				sb.WriteString(fmt.Sprintf("    %s(\"%s\")\n", id(name), escape(name)))
			}
		}
		sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id(c.From), id(c.To)))
	}

	if len(fresh) > 0 {
		slices.Sort(fresh)
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef fresh fill:#ffeb3b,stroke:#fbc02d,stroke-width:2px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s fresh;\n", strings.Join(fresh, ",")))
	}

	return sb.String()
}

func splitClient(name string) (client, port string) {
	client, port, ok := strings.Cut(name, ":")
	if !ok {
		return "", name
	}
	return client, port
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, id)
}
