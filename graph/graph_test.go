package graph_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/graph"
	"github.com/dudk/phonograph/mock"
)

func newGraph() *graph.Graph {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return graph.New(l)
}

func addr(node int, port string) phonograph.PortAddress {
	return phonograph.PortAddress{Node: node, Port: port}
}

// isBefore reports whether a appears strictly before b in order.
func isBefore(order []int, a, b int) bool {
	posA, posB := -1, -1
	for i, h := range order {
		if h == a {
			posA = i
		}
		if h == b {
			posB = i
		}
	}
	return posA >= 0 && posB >= 0 && posA < posB
}

func TestAddNode(t *testing.T) {
	g := newGraph()
	node := mock.NewThrough(2)
	require.NoError(t, g.AddNode(1, node))
	assert.Equal(t, node, g.Node(1))
	assert.Equal(t, 1, g.NodeCount())
	assert.True(t, g.HasNode(1))
	assert.False(t, g.HasNode(99))
}

func TestAddNodeDuplicate(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewThrough(2)))
	err := g.AddNode(1, mock.NewThrough(2))
	assert.ErrorIs(t, err, graph.ErrDuplicateNode)
	assert.Equal(t, 1, g.NodeCount())
}

func TestAddNodeNil(t *testing.T) {
	g := newGraph()
	assert.ErrorIs(t, g.AddNode(1, nil), graph.ErrNilNode)
	assert.Equal(t, 0, g.NodeCount())
}

func TestRemoveNode(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewThrough(2)))
	require.NoError(t, g.RemoveNode(1))
	assert.False(t, g.HasNode(1))
	assert.Nil(t, g.Node(1))
}

func TestRemoveNodeUnknown(t *testing.T) {
	g := newGraph()
	assert.ErrorIs(t, g.RemoveNode(42), graph.ErrUnknownNode)
}

func TestRemoveNodeCascades(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(3, mock.NewThrough(2)))
	_, err := g.Connect(addr(1, "out"), addr(2, "in"))
	require.NoError(t, err)
	_, err = g.Connect(addr(2, "out"), addr(3, "in"))
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(2))
	assert.Empty(t, g.Connections())
	assert.Empty(t, g.ConnectionsFor(1))
	assert.Empty(t, g.ConnectionsFor(3))
}

func TestConnectAudio(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	id, err := g.Connect(addr(1, "out"), addr(2, "in"))
	assert.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.Len(t, g.Connections(), 1)
}

func TestConnectEvent(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, &mock.EventSource{}))
	require.NoError(t, g.AddNode(2, &mock.EventSink{}))
	_, err := g.Connect(addr(1, "out"), addr(2, "in"))
	assert.NoError(t, err)
}

func TestConnectValidationOrder(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))

	tests := []struct {
		description string
		source      phonograph.PortAddress
		dest        phonograph.PortAddress
		expected    error
	}{
		{
			description: "source node missing",
			source:      addr(99, "out"),
			dest:        addr(2, "in"),
			expected:    graph.ErrUnknownNode,
		},
		{
			description: "dest node missing",
			source:      addr(1, "out"),
			dest:        addr(99, "in"),
			expected:    graph.ErrUnknownNode,
		},
		{
			description: "source port missing",
			source:      addr(1, "sidechain"),
			dest:        addr(2, "in"),
			expected:    graph.ErrUnknownPort,
		},
		{
			description: "dest port missing",
			source:      addr(1, "out"),
			dest:        addr(2, "aux"),
			expected:    graph.ErrUnknownPort,
		},
		{
			description: "input used as source",
			source:      addr(2, "in"),
			dest:        addr(2, "in"),
			expected:    graph.ErrUnknownPort,
		},
	}
	for _, test := range tests {
		_, err := g.Connect(test.source, test.dest)
		assert.ErrorIs(t, err, test.expected, test.description)
		assert.Empty(t, g.Connections(), test.description)
	}
}

func TestConnectKindMismatch(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, &mock.EventSink{}))
	_, err := g.Connect(addr(1, "out"), addr(2, "in"))
	assert.ErrorIs(t, err, graph.ErrIncompatiblePorts)
	assert.Empty(t, g.Connections())
}

func TestConnectAudioChannelCountsMayDiffer(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(1, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	_, err := g.Connect(addr(1, "out"), addr(2, "in"))
	assert.NoError(t, err)
}

func TestConnectCycle(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	_, err := g.Connect(addr(1, "out"), addr(2, "in"))
	require.NoError(t, err)

	_, err = g.Connect(addr(2, "out"), addr(1, "in"))
	assert.ErrorIs(t, err, graph.ErrCycle)
	// the connection set still contains exactly the first connection
	conns := g.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, addr(1, "out"), conns[0].Source)
}

func TestConnectSelfLoop(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewThrough(2)))
	_, err := g.Connect(addr(1, "out"), addr(1, "in"))
	assert.ErrorIs(t, err, graph.ErrCycle)
}

func TestConnectTransitiveCycle(t *testing.T) {
	g := newGraph()
	for i := 1; i <= 4; i++ {
		require.NoError(t, g.AddNode(i, mock.NewThrough(2)))
	}
	for i := 1; i < 4; i++ {
		_, err := g.Connect(addr(i, "out"), addr(i+1, "in"))
		require.NoError(t, err)
	}
	_, err := g.Connect(addr(4, "out"), addr(1, "in"))
	assert.ErrorIs(t, err, graph.ErrCycle)
	assert.Len(t, g.Connections(), 3)
}

func TestDisconnect(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	id, err := g.Connect(addr(1, "out"), addr(2, "in"))
	require.NoError(t, err)

	require.NoError(t, g.Disconnect(id))
	assert.Empty(t, g.Connections())
	assert.ErrorIs(t, g.Disconnect(id), graph.ErrUnknownConnection)
}

func TestConnectionIDsNeverReused(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))

	seen := map[int]bool{}
	last := -1
	for i := 0; i < 5; i++ {
		id, err := g.Connect(addr(1, "out"), addr(2, "in"))
		require.NoError(t, err)
		assert.False(t, seen[id])
		assert.Greater(t, id, last)
		seen[id] = true
		last = id
		require.NoError(t, g.Disconnect(id))
	}
}

func TestExecutionOrderChain(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(3, mock.NewThrough(2)))
	_, err := g.Connect(addr(1, "out"), addr(2, "in"))
	require.NoError(t, err)
	_, err = g.Connect(addr(2, "out"), addr(3, "in"))
	require.NoError(t, err)

	order := g.ExecutionOrder()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestExecutionOrderTopological(t *testing.T) {
	// diamond: 1 -> 2, 1 -> 3, 2 -> 4, 3 -> 4
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(3, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(4, mock.NewThrough(2)))
	edges := [][2]int{{1, 2}, {1, 3}, {2, 4}, {3, 4}}
	for _, e := range edges {
		_, err := g.Connect(addr(e[0], "out"), addr(e[1], "in"))
		require.NoError(t, err)
	}

	order := g.ExecutionOrder()
	require.Len(t, order, 4)
	for _, e := range edges {
		assert.True(t, isBefore(order, e[0], e[1]), "%d must precede %d in %v", e[0], e[1], order)
	}
}

func TestExecutionOrderIncludesDisconnectedNodes(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(7, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(3, mock.NewThrough(2)))
	order := g.ExecutionOrder()
	assert.ElementsMatch(t, []int{3, 7}, order)
}

func TestExecutionOrderEmpty(t *testing.T) {
	g := newGraph()
	assert.Empty(t, g.ExecutionOrder())
}

func TestConnectionsForNode(t *testing.T) {
	g := newGraph()
	require.NoError(t, g.AddNode(1, mock.NewGenerator(2, 0)))
	require.NoError(t, g.AddNode(2, mock.NewThrough(2)))
	require.NoError(t, g.AddNode(3, mock.NewThrough(2)))
	_, err := g.Connect(addr(1, "out"), addr(2, "in"))
	require.NoError(t, err)
	_, err = g.Connect(addr(2, "out"), addr(3, "in"))
	require.NoError(t, err)

	assert.Len(t, g.ConnectionsFor(2), 2)
	assert.Len(t, g.ConnectionsFor(1), 1)
	assert.Empty(t, g.ConnectionsFor(42))
}

func TestHandlesSorted(t *testing.T) {
	g := newGraph()
	for _, h := range []int{5, 1, 3} {
		require.NoError(t, g.AddNode(h, mock.NewThrough(2)))
	}
	assert.Equal(t, []int{1, 3, 5}, g.Handles())
}
