// Package command implements the channel between the control thread
// and the audio thread: a queue of typed control messages going in and
// a queue of retired resources coming back for deferred destruction.
package command

import (
	"github.com/sirupsen/logrus"

	"github.com/dudk/phonograph/ring"
)

// Type tags the payload variant of a command.
type Type int

const (
	// SwapSnapshot installs a new topology snapshot, Ptr carries it.
	SwapSnapshot Type = iota
	// ParamChange applies a parameter value on the audio thread.
	ParamChange
	// TransportPlay starts playback.
	TransportPlay
	// TransportStop stops playback.
	TransportStop
	// TransportPause pauses playback.
	TransportPause
	// SetTempo changes the tempo, Float1 carries beats per minute.
	SetTempo
	// SeekSamples moves the playhead, Int64Value carries the position.
	SeekSamples
)

func (t Type) String() string {
	switch t {
	case SwapSnapshot:
		return "swapSnapshot"
	case ParamChange:
		return "paramChange"
	case TransportPlay:
		return "transportPlay"
	case TransportStop:
		return "transportStop"
	case TransportPause:
		return "transportPause"
	case SetTempo:
		return "setTempo"
	case SeekSamples:
		return "seekSamples"
	}
	return "unknown"
}

// Command is a control-to-audio message. It is constructed on the
// control thread, consumed exactly once on the audio thread and never
// mutated after enqueue. The engine owns the SwapSnapshot variant,
// every other variant is opaque payload dispatched to the registered
// handler.
type Command struct {
	Type Type

	Ptr        interface{}
	Name       string
	Float1     float64
	Float2     float64
	Int64Value int64
	Int1       int
	Int2       int
}

// GarbageItem is a deferred-destruction request for a resource retired
// by the audio thread. Free must run on the control thread. Both
// fields are set on the control thread so that enqueueing on the audio
// thread is a plain struct copy without allocation.
type GarbageItem struct {
	Ptr  interface{}
	Free func(interface{})
}

// Destroy invokes the destruction function. Control thread only.
func (g *GarbageItem) Destroy() {
	if g.Ptr != nil && g.Free != nil {
		g.Free(g.Ptr)
	}
	g.Ptr = nil
}

// DefaultCapacity is the capacity of both queues unless overridden.
const DefaultCapacity = 256

// Queue is the paired lock-free channel. SendCommand and
// CollectGarbage belong to the control thread, ProcessPending and
// SendGarbage to the audio thread. No other thread may call either
// side.
type Queue struct {
	commands *ring.Queue[Command]
	garbage  *ring.Queue[GarbageItem]
	log      logrus.FieldLogger
}

// New returns a queue pair with provided capacity for each direction.
func New(capacity int, log logrus.FieldLogger) *Queue {
	return &Queue{
		commands: ring.New[Command](capacity),
		garbage:  ring.New[GarbageItem](capacity),
		log:      log,
	}
}

// SendCommand enqueues a command for the audio thread. When the queue
// is full the command is dropped and false is returned: backpressure
// degrades to a failed call, never to a block.
func (q *Queue) SendCommand(cmd Command) bool {
	if !q.commands.Push(cmd) {
		q.log.WithField("command", cmd.Type.String()).Warn("command queue full, dropping command")
		return false
	}
	q.log.WithField("command", cmd.Type.String()).Debug("sent command")
	return true
}

// ProcessPending drains all currently queued commands, invoking the
// handler per command, and returns the count processed. Must be called
// at the start of every block before any data-path work.
func (q *Queue) ProcessPending(handler func(Command)) int {
	count := 0
	for {
		cmd, ok := q.commands.Pop()
		if !ok {
			return count
		}
		handler(cmd)
		count++
	}
}

// SendGarbage enqueues a retired resource for destruction on the
// control thread. When the queue is full the item is intentionally
// leaked: destroying it here would run arbitrary teardown on the audio
// thread.
func (q *Queue) SendGarbage(item GarbageItem) bool {
	if !q.garbage.Push(item) {
		// diagnostic only, the failure path is already off contract
		q.log.Warn("garbage queue full, item leaked")
		return false
	}
	return true
}

// CollectGarbage drains the garbage queue and destroys each item. Must
// be called periodically to bound memory growth, at least once per
// control-thread operation that might enqueue garbage.
func (q *Queue) CollectGarbage() int {
	count := 0
	for {
		item, ok := q.garbage.Pop()
		if !ok {
			return count
		}
		item.Destroy()
		count++
	}
}

// PendingCommands returns the advisory number of queued commands.
func (q *Queue) PendingCommands() int {
	return q.commands.Len()
}

// PendingGarbage returns the advisory number of queued garbage items.
func (q *Queue) PendingGarbage() int {
	return q.garbage.Len()
}
