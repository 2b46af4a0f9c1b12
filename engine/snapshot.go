package engine

import (
	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/graph"
)

// nodeState is the per-node execution state captured in a snapshot.
// The context and its buffers are allocated once at build time and
// reused every block.
type nodeState struct {
	node phonograph.Node
	ctx  phonograph.ProcessContext
}

// Snapshot is an immutable, audio-thread-owned materialization of one
// point-in-time graph topology: execution order, per-node buffers and
// precomputed fan-in lists per signal kind. Once constructed a
// snapshot is never mutated, only replaced wholesale; retired
// snapshots return to the control thread through the garbage queue.
type Snapshot struct {
	order       []int
	states      map[int]*nodeState
	audioFanIn  map[int][]int
	eventFanIn  map[int][]int
	eventInputs map[int]*phonograph.EventBuffer
	terminal    int
}

// newSnapshot materializes the current graph topology. Control thread
// only, caller holds the engine lock.
func newSnapshot(g *graph.Graph, blockSize phonograph.BufferSize, eventCap int, terminal int) *Snapshot {
	order := g.ExecutionOrder()
	s := &Snapshot{
		order:       order,
		states:      make(map[int]*nodeState, len(order)),
		audioFanIn:  make(map[int][]int),
		eventFanIn:  make(map[int][]int),
		eventInputs: make(map[int]*phonograph.EventBuffer, len(order)),
		terminal:    terminal,
	}

	for _, c := range g.Connections() {
		src := g.Node(c.Source.Node)
		if src == nil {
			continue
		}
		port, ok := phonograph.FindPort(src.OutputPorts(), c.Source.Port)
		if !ok {
			continue
		}
		switch port.Kind {
		case phonograph.KindAudio:
			s.audioFanIn[c.Dest.Node] = append(s.audioFanIn[c.Dest.Node], c.Source.Node)
		case phonograph.KindEvent:
			s.eventFanIn[c.Dest.Node] = append(s.eventFanIn[c.Dest.Node], c.Source.Node)
		}
	}

	for _, handle := range order {
		node := g.Node(handle)
		if node == nil {
			continue
		}
		st := &nodeState{
			node: node,
			ctx: phonograph.ProcessContext{
				InputAudio:   phonograph.EmptyBuffer(maxChannels(node.InputPorts()), blockSize),
				OutputAudio:  phonograph.EmptyBuffer(maxChannels(node.OutputPorts()), blockSize),
				InputEvents:  phonograph.NewEventBuffer(eventCap),
				OutputEvents: phonograph.NewEventBuffer(eventCap),
			},
		}
		s.states[handle] = st
		s.eventInputs[handle] = st.ctx.InputEvents
	}
	return s
}

// maxChannels returns the largest channel count declared by the audio
// ports, with a minimum of one even if the node declares none, to keep
// buffer handling branch-free.
func maxChannels(ports []phonograph.Port) phonograph.NumChannels {
	channels := 1
	for _, p := range ports {
		if p.Kind == phonograph.KindAudio && p.Channels > channels {
			channels = p.Channels
		}
	}
	return phonograph.NumChannels(channels)
}

// Order returns the execution order. The returned slice is owned by
// the snapshot and must not be mutated.
func (s *Snapshot) Order() []int {
	return s.order
}

// Terminal returns the handle of the terminal node.
func (s *Snapshot) Terminal() int {
	return s.terminal
}

// HasNode reports whether the snapshot carries state for the handle.
func (s *Snapshot) HasNode(handle int) bool {
	_, ok := s.states[handle]
	return ok
}
