package phonograph

import "fmt"

// PortDirection defines whether a port consumes or produces signal.
type PortDirection int

const (
	// Input ports consume signal.
	Input PortDirection = iota
	// Output ports produce signal.
	Output
)

// SignalKind defines the kind of signal a port carries.
type SignalKind int

const (
	// KindAudio is a multi-channel stream of samples.
	KindAudio SignalKind = iota
	// KindEvent is a stream of timed control events.
	KindEvent
)

func (k SignalKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindEvent:
		return "event"
	}
	return "unknown"
}

// Port is a named, typed and directional connection point on a node.
type Port struct {
	Name      string
	Direction PortDirection
	Kind      SignalKind
	Channels  int
}

// PortAddress identifies a port of a registered node.
type PortAddress struct {
	Node int
	Port string
}

func (a PortAddress) String() string {
	return fmt.Sprintf("%d:%s", a.Node, a.Port)
}

// FindPort returns the port with provided name.
func FindPort(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// CanConnect reports whether a source port can feed a destination port:
// directions must be output to input, signal kinds must match and event
// ports must be single-channel on both ends. Audio ports may differ in
// channel count, the engine sums the minimum of the two.
func CanConnect(src, dst Port) bool {
	if src.Direction != Output || dst.Direction != Input {
		return false
	}
	if src.Kind != dst.Kind {
		return false
	}
	if src.Kind == KindEvent && (src.Channels != 1 || dst.Channels != 1) {
		return false
	}
	return true
}
