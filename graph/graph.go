// Package graph implements the control-thread topology model: a node
// registry, validated port-to-port connections and deterministic
// topological execution order.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dudk/phonograph"
)

// Structural validation errors. Connect and the node operations wrap
// these with a human-readable reason, use errors.Is to test.
var (
	ErrNilNode           = errors.New("node is nil")
	ErrDuplicateNode     = errors.New("node handle already present")
	ErrUnknownNode       = errors.New("node not found")
	ErrUnknownPort       = errors.New("port not found")
	ErrIncompatiblePorts = errors.New("incompatible ports")
	ErrCycle             = errors.New("connection would create a cycle")
	ErrUnknownConnection = errors.New("connection not found")
)

// Connection is a validated edge from one node's output port to
// another node's input port. IDs are assigned at creation and never
// reused, so disconnect/reconnect cycles stay distinguishable.
type Connection struct {
	ID     int
	Source phonograph.PortAddress
	Dest   phonograph.PortAddress
}

// Graph is the authoritative set of nodes and connections. It is owned
// and mutated exclusively by the control thread, the audio thread only
// ever observes it through snapshots. The connection set stays acyclic
// at all times.
type Graph struct {
	nodes       map[int]phonograph.Node
	connections []Connection
	nextConnID  int
	log         logrus.FieldLogger
}

// New returns an empty graph.
func New(log logrus.FieldLogger) *Graph {
	return &Graph{
		nodes: make(map[int]phonograph.Node),
		log:   log,
	}
}

// AddNode registers a node under the provided handle.
func (g *Graph) AddNode(handle int, node phonograph.Node) error {
	if node == nil {
		g.log.WithField("node", handle).Warn("addNode: nil node")
		return ErrNilNode
	}
	if _, ok := g.nodes[handle]; ok {
		g.log.WithField("node", handle).Warn("addNode: duplicate handle")
		return fmt.Errorf("%w: handle %d", ErrDuplicateNode, handle)
	}
	g.log.WithField("node", handle).Debug("addNode")
	g.nodes[handle] = node
	return nil
}

// RemoveNode removes a node and cascades: every connection whose
// source or destination is that handle is removed as well.
func (g *Graph) RemoveNode(handle int) error {
	if _, ok := g.nodes[handle]; !ok {
		g.log.WithField("node", handle).Warn("removeNode: handle not found")
		return fmt.Errorf("%w: handle %d", ErrUnknownNode, handle)
	}
	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.Source.Node != handle && c.Dest.Node != handle {
			kept = append(kept, c)
		}
	}
	g.log.WithFields(logrus.Fields{
		"node":        handle,
		"connections": len(g.connections) - len(kept),
	}).Debug("removeNode")
	g.connections = kept
	delete(g.nodes, handle)
	return nil
}

// Node returns the node registered under the handle, or nil.
func (g *Graph) Node(handle int) phonograph.Node {
	return g.nodes[handle]
}

// HasNode reports whether the handle is registered.
func (g *Graph) HasNode(handle int) bool {
	_, ok := g.nodes[handle]
	return ok
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Handles returns all registered handles in ascending order.
func (g *Graph) Handles() []int {
	handles := make([]int, 0, len(g.nodes))
	for h := range g.nodes {
		handles = append(handles, h)
	}
	sort.Ints(handles)
	return handles
}

// Connect validates and creates a connection from a source output port
// to a destination input port and returns its identity. Validation
// order: source node, destination node, source port, destination port,
// port compatibility, acyclicity. The first failing check determines
// the error and the graph stays unchanged.
func (g *Graph) Connect(source, dest phonograph.PortAddress) (int, error) {
	srcNode, ok := g.nodes[source.Node]
	if !ok {
		return -1, g.connectError(source, dest, fmt.Errorf("%w: source node %d", ErrUnknownNode, source.Node))
	}
	dstNode, ok := g.nodes[dest.Node]
	if !ok {
		return -1, g.connectError(source, dest, fmt.Errorf("%w: destination node %d", ErrUnknownNode, dest.Node))
	}
	srcPort, ok := phonograph.FindPort(srcNode.OutputPorts(), source.Port)
	if !ok {
		return -1, g.connectError(source, dest, fmt.Errorf("%w: output %q on node %d", ErrUnknownPort, source.Port, source.Node))
	}
	dstPort, ok := phonograph.FindPort(dstNode.InputPorts(), dest.Port)
	if !ok {
		return -1, g.connectError(source, dest, fmt.Errorf("%w: input %q on node %d", ErrUnknownPort, dest.Port, dest.Node))
	}
	if !phonograph.CanConnect(srcPort, dstPort) {
		return -1, g.connectError(source, dest, fmt.Errorf("%w: %v -> %v", ErrIncompatiblePorts, source, dest))
	}
	if g.wouldCreateCycle(source.Node, dest.Node) {
		return -1, g.connectError(source, dest, ErrCycle)
	}

	id := g.nextConnID
	g.nextConnID++
	g.connections = append(g.connections, Connection{ID: id, Source: source, Dest: dest})
	g.log.WithFields(logrus.Fields{
		"connection": id,
		"source":     source.String(),
		"dest":       dest.String(),
	}).Debug("connect")
	return id, nil
}

func (g *Graph) connectError(source, dest phonograph.PortAddress, err error) error {
	g.log.WithFields(logrus.Fields{
		"source": source.String(),
		"dest":   dest.String(),
	}).Warnf("connect failed: %v", err)
	return err
}

// Disconnect removes a connection by identity.
func (g *Graph) Disconnect(id int) error {
	for i, c := range g.connections {
		if c.ID == id {
			g.log.WithFields(logrus.Fields{
				"connection": id,
				"source":     c.Source.String(),
				"dest":       c.Dest.String(),
			}).Debug("disconnect")
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			return nil
		}
	}
	g.log.WithField("connection", id).Debug("disconnect: not found")
	return fmt.Errorf("%w: id %d", ErrUnknownConnection, id)
}

// Connections returns a copy of the current connection set.
func (g *Graph) Connections() []Connection {
	result := make([]Connection, len(g.connections))
	copy(result, g.connections)
	return result
}

// ConnectionsFor returns all connections referencing the handle as
// source or destination.
func (g *Graph) ConnectionsFor(handle int) []Connection {
	var result []Connection
	for _, c := range g.connections {
		if c.Source.Node == handle || c.Dest.Node == handle {
			result = append(result, c)
		}
	}
	return result
}

// ExecutionOrder returns a topologically valid permutation of the
// registered handles: for every connection A->B, A appears strictly
// before B. Nodes without connections appear at an arbitrary valid
// position. Among simultaneously ready nodes lower handles are seeded
// first, but callers must not rely on that tie-break.
func (g *Graph) ExecutionOrder() []int {
	inDegree := make(map[int]int, len(g.nodes))
	adjacency := make(map[int][]int, len(g.nodes))
	for h := range g.nodes {
		inDegree[h] = 0
	}
	for _, c := range g.connections {
		adjacency[c.Source.Node] = append(adjacency[c.Source.Node], c.Dest.Node)
		inDegree[c.Dest.Node]++
	}

	ready := make([]int, 0, len(g.nodes))
	for _, h := range g.Handles() {
		if inDegree[h] == 0 {
			ready = append(ready, h)
		}
	}

	order := make([]int, 0, len(g.nodes))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)
		for _, next := range adjacency[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	return order
}

// wouldCreateCycle reports whether adding src->dst would close a
// cycle: iterative breadth-first reachability from dst through
// existing connections, looking for src. Self-loops are the trivial
// case.
func (g *Graph) wouldCreateCycle(src, dst int) bool {
	if src == dst {
		return true
	}
	visited := map[int]bool{dst: true}
	frontier := []int{dst}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, c := range g.connections {
			if c.Source.Node != current {
				continue
			}
			if c.Dest.Node == src {
				return true
			}
			if !visited[c.Dest.Node] {
				visited[c.Dest.Node] = true
				frontier = append(frontier, c.Dest.Node)
			}
		}
	}
	return false
}
