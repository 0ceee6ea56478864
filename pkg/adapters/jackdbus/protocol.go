package jackdbus

import (
	"strings"

	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/godbus/dbus/v5"
)

const (
	Service = "org.jackaudio.service"

	ObjectPath dbus.ObjectPath = "/org/jackaudio/Controller"

	PatchbayInterface = "org.jackaudio.JackPatchbay"
	ControlInterface  = "org.jackaudio.JackControl"

	signalPortAppeared      = PatchbayInterface + ".PortAppeared"
	signalPortDisappeared   = PatchbayInterface + ".PortDisappeared"
	signalPortRenamed       = PatchbayInterface + ".PortRenamed"
	signalPortsConnected    = PatchbayInterface + ".PortsConnected"
	signalPortsDisconnected = PatchbayInterface + ".PortsDisconnected"
	signalServerStopped     = ControlInterface + ".ServerStopped"
	signalNameOwnerChanged  = "org.freedesktop.DBus.NameOwnerChanged"

	methodGetGraph         = PatchbayInterface + ".GetGraph"
	methodConnectByName    = PatchbayInterface + ".ConnectPortsByName"
	methodDisconnectByName = PatchbayInterface + ".DisconnectPortsByName"
	methodIsStarted        = ControlInterface + ".IsStarted"
)

// JACK port flags and types as exposed by jackdbus.
const (
	flagIsInput  uint32 = 0x1
	flagIsOutput uint32 = 0x2

	typeAudio uint32 = 0
	typeMIDI  uint32 = 1
)

// graphPort is the (tsuu) element of GetGraph.
type graphPort struct {
	ID    uint64
	Name  string
	Flags uint32
	Type  uint32
}

// graphClient is the (tsa(tsuu)) element of GetGraph.
type graphClient struct {
	ID    uint64
	Name  string
	Ports []graphPort
}

// graphConnection is the (tstststst) element of GetGraph.
type graphConnection struct {
	Client1ID uint64
	Client1   string
	Port1ID   uint64
	Port1     string
	Client2ID uint64
	Client2   string
	Port2ID   uint64
	Port2     string
	ID        uint64
}

func modeOf(flags uint32) domain.PortMode {
	switch {
	case flags&flagIsOutput != 0:
		return domain.PortModeOutput
	case flags&flagIsInput != 0:
		return domain.PortModeInput
	}
	return domain.PortModeNull
}

func typeOf(t uint32) domain.PortType {
	switch t {
	case typeAudio:
		return domain.PortTypeAudio
	case typeMIDI:
		return domain.PortTypeMIDI
	}
	return domain.PortTypeNull
}

func fullName(client, port string) string {
	return client + ":" + port
}

// splitName separates a full port name at its first colon.
// Client names never carry a colon, port names may.
func splitName(name string) (client, port string, ok bool) {
	return strings.Cut(name, ":")
}

// fields collects the string and uint32 arguments of a signal body in order,
// skipping ids and graph versions.
func fields(body []interface{}) (strs []string, words []uint32) {
	for _, v := range body {
		switch x := v.(type) {
		case string:
			strs = append(strs, x)
		case uint32:
			words = append(words, x)
		}
	}
	return strs, words
}

func snapshotOf(clients []graphClient, conns []graphConnection) domain.Snapshot {
	var snap domain.Snapshot
	for _, c := range clients {
		for _, p := range c.Ports {
			snap.Ports = append(snap.Ports, domain.Port{
				Name: fullName(c.Name, p.Name),
				Mode: modeOf(p.Flags),
				Type: typeOf(p.Type),
			})
		}
	}
	for _, c := range conns {
		snap.Connections.Add(domain.Connection{
			From: fullName(c.Client1, c.Port1),
			To:   fullName(c.Client2, c.Port2),
		})
	}
	return snap
}
