// Package engine owns the control-side node registry and graph, the
// audio-side active snapshot, and the command channel between them. A
// topology change builds a fresh immutable snapshot on the control
// thread and swaps it in at a block boundary without ever blocking the
// audio thread.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/command"
	"github.com/dudk/phonograph/graph"
	"github.com/dudk/phonograph/log"
)

// Engine-level errors.
var (
	ErrQueueFull = errors.New("command queue full")
	ErrTerminal  = errors.New("terminal node cannot be removed")
	ErrNoParams  = errors.New("node has no parameters")
	ErrClosed    = errors.New("engine is closed")
)

// TerminalPort is the input port name of the built-in terminal node.
const TerminalPort = "in"

const defaultEventCapacity = 1024

// EventRouter delivers externally-sourced events into node event-input
// buffers for one block. It is invoked on the audio thread between the
// commands drain and the node-processing loop, and must neither block
// nor allocate.
type EventRouter interface {
	Route(dest map[int]*phonograph.EventBuffer, numSamples int)
}

// Handler consumes opaque commands on the audio thread. It must
// neither block nor allocate.
type Handler func(command.Command)

// Engine executes a mutable graph of nodes block by block.
//
// Exactly two long-lived threads interact with it: the control thread
// calls every exported method except ProcessBlock, the audio thread
// calls only ProcessBlock. Control-side mutations take a single coarse
// lock over the registry and graph, but never touch audio-thread-owned
// memory while holding it; the command channel is the only
// cross-thread contact point.
type Engine struct {
	phonograph.UID

	sampleRate phonograph.SampleRate
	blockSize  phonograph.BufferSize

	mu         sync.Mutex
	graph      *graph.Graph
	nextHandle int
	refs       map[int]int             // in-flight snapshot references per handle
	retired    map[int]phonograph.Node // removed, awaiting release
	terminal   int
	closed     bool

	commands *command.Queue
	active   atomic.Pointer[Snapshot]
	router   EventRouter
	handler  Handler
	// bound once so the audio thread never allocates a method value
	drainFn func(command.Command)
	freeFn  func(interface{})

	queueCap     int
	eventCap     int
	termChannels phonograph.NumChannels

	log logrus.FieldLogger
}

// Option provides a way to set functional parameters to the engine.
type Option func(e *Engine) error

// WithLogger sets the logger. If this option is not provided, the
// package default is used.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) error {
		e.log = l
		return nil
	}
}

// WithEventRouter sets the per-block event routing hook.
func WithEventRouter(r EventRouter) Option {
	return func(e *Engine) error {
		e.router = r
		return nil
	}
}

// WithCommandHandler sets the audio-side hook for opaque commands.
func WithCommandHandler(h Handler) Option {
	return func(e *Engine) error {
		e.handler = h
		return nil
	}
}

// WithQueueCapacity overrides the command and garbage queue capacity.
func WithQueueCapacity(capacity int) Option {
	return func(e *Engine) error {
		if capacity <= 0 {
			return fmt.Errorf("queue capacity must be positive, got %d", capacity)
		}
		e.queueCap = capacity
		return nil
	}
}

// WithEventBufferCapacity overrides the per-node event buffer capacity.
func WithEventBufferCapacity(capacity int) Option {
	return func(e *Engine) error {
		if capacity <= 0 {
			return fmt.Errorf("event buffer capacity must be positive, got %d", capacity)
		}
		e.eventCap = capacity
		return nil
	}
}

// WithTerminalChannels overrides the channel count of the terminal
// node, two by default.
func WithTerminalChannels(numChannels phonograph.NumChannels) Option {
	return func(e *Engine) error {
		if numChannels <= 0 {
			return fmt.Errorf("terminal channels must be positive, got %d", numChannels)
		}
		e.termChannels = numChannels
		return nil
	}
}

// New creates an engine for the provided sample rate and block size,
// registers the built-in terminal node and installs the initial
// snapshot.
func New(sampleRate phonograph.SampleRate, blockSize phonograph.BufferSize, options ...Option) (*Engine, error) {
	if sampleRate <= 0 || blockSize <= 0 {
		return nil, fmt.Errorf("invalid format: %d Hz, %d samples", sampleRate, blockSize)
	}
	e := &Engine{
		UID:          phonograph.NewUID(),
		sampleRate:   sampleRate,
		blockSize:    blockSize,
		refs:         make(map[int]int),
		retired:      make(map[int]phonograph.Node),
		queueCap:     command.DefaultCapacity,
		eventCap:     defaultEventCapacity,
		termChannels: 2,
		log:          log.GetLogger(),
	}
	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}
	e.log = e.log.WithField("engine", e.ID())
	e.graph = graph.New(e.log)
	e.commands = command.New(e.queueCap, e.log)
	e.drainFn = e.handleCommand
	e.freeFn = e.destroySnapshot

	e.mu.Lock()
	defer e.mu.Unlock()
	terminal := &terminalNode{channels: e.termChannels}
	handle, err := e.addNode(terminal)
	if err != nil {
		return nil, err
	}
	e.terminal = handle
	e.buildAndSwap()
	return e, nil
}

// SampleRate returns the sample rate the engine was prepared with.
func (e *Engine) SampleRate() phonograph.SampleRate {
	return e.sampleRate
}

// BlockSize returns the block size the engine was prepared with.
func (e *Engine) BlockSize() phonograph.BufferSize {
	return e.blockSize
}

// Terminal returns the handle of the built-in terminal node. Connect
// audio sources to its TerminalPort input to make them audible.
func (e *Engine) Terminal() int {
	return e.terminal
}

// AddNode registers a node, prepares it and makes it part of the next
// snapshot. The returned handle is assigned once and never reused.
func (e *Engine) AddNode(node phonograph.Node) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return -1, ErrClosed
	}
	e.commands.CollectGarbage()
	handle, err := e.addNode(node)
	if err != nil {
		return -1, err
	}
	e.buildAndSwap()
	return handle, nil
}

func (e *Engine) addNode(node phonograph.Node) (int, error) {
	handle := e.nextHandle
	if err := e.graph.AddNode(handle, node); err != nil {
		return -1, err
	}
	e.nextHandle++
	node.Prepare(e.sampleRate, e.blockSize)
	return handle, nil
}

// RemoveNode removes a node and every connection referencing it. The
// node is released only once no in-flight snapshot references it.
func (e *Engine) RemoveNode(handle int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.commands.CollectGarbage()
	if handle == e.terminal {
		return ErrTerminal
	}
	node := e.graph.Node(handle)
	if err := e.graph.RemoveNode(handle); err != nil {
		return err
	}
	if e.refs[handle] > 0 {
		e.retired[handle] = node
	} else {
		node.Release()
	}
	e.buildAndSwap()
	return nil
}

// Connect creates a connection from a source output port to a
// destination input port and returns its identity. A rejected
// connection leaves the graph and the live snapshot untouched.
func (e *Engine) Connect(source, dest phonograph.PortAddress) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return -1, ErrClosed
	}
	e.commands.CollectGarbage()
	id, err := e.graph.Connect(source, dest)
	if err != nil {
		return -1, err
	}
	e.buildAndSwap()
	return id, nil
}

// Disconnect removes a connection by identity.
func (e *Engine) Disconnect(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.commands.CollectGarbage()
	if err := e.graph.Disconnect(id); err != nil {
		return err
	}
	e.buildAndSwap()
	return nil
}

// Connections returns a copy of the current connection set.
func (e *Engine) Connections() []graph.Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Connections()
}

// ExecutionOrder returns the current topological order of the graph.
func (e *Engine) ExecutionOrder() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.ExecutionOrder()
}

// Node returns the node registered under the handle, or nil.
func (e *Engine) Node(handle int) phonograph.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Node(handle)
}

// NodeCount returns the number of registered nodes, terminal included.
func (e *Engine) NodeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.NodeCount()
}

// SetParam sets a string-keyed parameter on a node. Control thread
// only.
func (e *Engine) SetParam(handle int, name string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.params(handle)
	if err != nil {
		return err
	}
	p.SetParam(name, value)
	return nil
}

// Param returns a parameter value of a node.
func (e *Engine) Param(handle int, name string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.params(handle)
	if err != nil {
		return 0, err
	}
	return p.Param(name), nil
}

// ParamText returns the display text of a node parameter.
func (e *Engine) ParamText(handle int, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.params(handle)
	if err != nil {
		return "", err
	}
	return p.ParamText(name), nil
}

// ParamDescriptors returns the parameter descriptors of a node.
func (e *Engine) ParamDescriptors(handle int) ([]phonograph.ParamDescriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.params(handle)
	if err != nil {
		return nil, err
	}
	return p.ParamDescriptors(), nil
}

func (e *Engine) params(handle int) (phonograph.Parametrized, error) {
	node := e.graph.Node(handle)
	if node == nil {
		return nil, fmt.Errorf("%w: handle %d", graph.ErrUnknownNode, handle)
	}
	p, ok := node.(phonograph.Parametrized)
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", ErrNoParams, handle)
	}
	return p, nil
}

// Send forwards an opaque command to the audio thread, where it is
// dispatched to the registered handler. On a full queue the command is
// dropped and ErrQueueFull returned: the caller may retry, never wait.
func (e *Engine) Send(cmd command.Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.commands.CollectGarbage()
	if !e.commands.SendCommand(cmd) {
		return ErrQueueFull
	}
	return nil
}

// Transport forwarding. Each call enqueues one opaque command.

// Play starts playback.
func (e *Engine) Play() error {
	return e.Send(command.Command{Type: command.TransportPlay})
}

// Stop stops playback.
func (e *Engine) Stop() error {
	return e.Send(command.Command{Type: command.TransportStop})
}

// Pause pauses playback.
func (e *Engine) Pause() error {
	return e.Send(command.Command{Type: command.TransportPause})
}

// SetTempo changes the tempo in beats per minute.
func (e *Engine) SetTempo(bpm float64) error {
	return e.Send(command.Command{Type: command.SetTempo, Float1: bpm})
}

// Seek moves the playhead to an absolute sample position.
func (e *Engine) Seek(samples int64) error {
	return e.Send(command.Command{Type: command.SeekSamples, Int64Value: samples})
}

// CollectGarbage destroys resources retired by the audio thread. It is
// invoked by every mutating call; long-running control threads that
// only read should still call it periodically.
func (e *Engine) CollectGarbage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commands.CollectGarbage()
}

// Snapshot returns the currently active snapshot, or nil before the
// first swap was applied. The snapshot must be treated as read-only.
func (e *Engine) Snapshot() *Snapshot {
	return e.active.Load()
}

// Close tears the engine down. Both threads must be quiescent: no
// ProcessBlock call may be running or arrive after Close.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	// drain both directions, then retire the active snapshot
	e.commands.ProcessPending(e.drainFn)
	if old := e.active.Swap(nil); old != nil {
		e.destroySnapshot(old)
	}
	e.commands.CollectGarbage()
	for _, handle := range e.graph.Handles() {
		e.graph.Node(handle).Release()
	}
	e.log.Debug("closed")
	return nil
}

// buildAndSwap materializes the current topology into a new snapshot
// and enqueues a swap command carrying its ownership. If the command
// queue is full the snapshot is destroyed right here: it was never
// visible to the audio thread, and the previous topology remains live.
// Caller holds the lock.
func (e *Engine) buildAndSwap() {
	snap := newSnapshot(e.graph, e.blockSize, e.eventCap, e.terminal)
	for handle := range snap.states {
		e.refs[handle]++
	}
	if !e.commands.SendCommand(command.Command{Type: command.SwapSnapshot, Ptr: snap}) {
		e.log.Warn("swap dropped, previous topology remains live")
		e.destroySnapshot(snap)
	}
}

// destroySnapshot drops the snapshot's node references and releases
// nodes that left the registry once their last reference is gone.
// Control thread only, caller holds the lock.
func (e *Engine) destroySnapshot(v interface{}) {
	snap, ok := v.(*Snapshot)
	if !ok {
		return
	}
	for handle := range snap.states {
		e.refs[handle]--
		if e.refs[handle] > 0 {
			continue
		}
		delete(e.refs, handle)
		if node, retired := e.retired[handle]; retired {
			delete(e.retired, handle)
			node.Release()
		}
	}
}
