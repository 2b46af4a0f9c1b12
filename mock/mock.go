// Package mock provides node fixtures for engine and graph tests.
package mock

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/dudk/phonograph"
)

// Counter tracks lifecycle and processing calls of a fixture node.
type Counter struct {
	prepared  atomic.Int32
	released  atomic.Int32
	processed atomic.Int32
}

// Prepared returns the number of Prepare calls.
func (c *Counter) Prepared() int { return int(c.prepared.Load()) }

// Released returns the number of Release calls.
func (c *Counter) Released() int { return int(c.released.Load()) }

// Processed returns the number of Process calls.
func (c *Counter) Processed() int { return int(c.processed.Load()) }

// Generator is a node with a single audio output producing a constant
// value, settable through the "value" parameter.
type Generator struct {
	Counter
	Channels int
	value    atomic.Uint64
}

// NewGenerator returns a generator producing the provided value.
func NewGenerator(numChannels int, value float64) *Generator {
	g := &Generator{Channels: numChannels}
	g.value.Store(math.Float64bits(value))
	return g
}

// Prepare implements phonograph.Node.
func (g *Generator) Prepare(phonograph.SampleRate, phonograph.BufferSize) {
	g.prepared.Add(1)
}

// Release implements phonograph.Node.
func (g *Generator) Release() {
	g.released.Add(1)
}

// Process fills the output with the constant value.
func (g *Generator) Process(ctx *phonograph.ProcessContext) {
	g.processed.Add(1)
	value := math.Float64frombits(g.value.Load())
	for ch := range ctx.OutputAudio {
		n := ctx.NumSamples
		if len(ctx.OutputAudio[ch]) < n {
			n = len(ctx.OutputAudio[ch])
		}
		for i := 0; i < n; i++ {
			ctx.OutputAudio[ch][i] = value
		}
	}
}

// InputPorts implements phonograph.Node.
func (g *Generator) InputPorts() []phonograph.Port {
	return nil
}

// OutputPorts implements phonograph.Node.
func (g *Generator) OutputPorts() []phonograph.Port {
	return []phonograph.Port{{Name: "out", Direction: phonograph.Output, Kind: phonograph.KindAudio, Channels: g.Channels}}
}

// ParamDescriptors implements phonograph.Parametrized.
func (g *Generator) ParamDescriptors() []phonograph.ParamDescriptor {
	return []phonograph.ParamDescriptor{{Name: "value", Default: 0, Automatable: true}}
}

// Param implements phonograph.Parametrized.
func (g *Generator) Param(name string) float64 {
	if name == "value" {
		return math.Float64frombits(g.value.Load())
	}
	return 0
}

// SetParam implements phonograph.Parametrized.
func (g *Generator) SetParam(name string, value float64) {
	if name == "value" {
		g.value.Store(math.Float64bits(value))
	}
}

// ParamText implements phonograph.Parametrized.
func (g *Generator) ParamText(name string) string {
	return fmt.Sprintf("%.2f", g.Param(name))
}

// Through is a node copying its audio input to its audio output.
type Through struct {
	Counter
	Channels int
}

// NewThrough returns a pass-through node.
func NewThrough(numChannels int) *Through {
	return &Through{Channels: numChannels}
}

// Prepare implements phonograph.Node.
func (t *Through) Prepare(phonograph.SampleRate, phonograph.BufferSize) {
	t.prepared.Add(1)
}

// Release implements phonograph.Node.
func (t *Through) Release() {
	t.released.Add(1)
}

// Process copies input samples to the output.
func (t *Through) Process(ctx *phonograph.ProcessContext) {
	t.processed.Add(1)
	channels := len(ctx.OutputAudio)
	if len(ctx.InputAudio) < channels {
		channels = len(ctx.InputAudio)
	}
	for ch := 0; ch < channels; ch++ {
		n := ctx.NumSamples
		if len(ctx.OutputAudio[ch]) < n {
			n = len(ctx.OutputAudio[ch])
		}
		if len(ctx.InputAudio[ch]) < n {
			n = len(ctx.InputAudio[ch])
		}
		copy(ctx.OutputAudio[ch][:n], ctx.InputAudio[ch][:n])
	}
}

// InputPorts implements phonograph.Node.
func (t *Through) InputPorts() []phonograph.Port {
	return []phonograph.Port{{Name: "in", Direction: phonograph.Input, Kind: phonograph.KindAudio, Channels: t.Channels}}
}

// OutputPorts implements phonograph.Node.
func (t *Through) OutputPorts() []phonograph.Port {
	return []phonograph.Port{{Name: "out", Direction: phonograph.Output, Kind: phonograph.KindAudio, Channels: t.Channels}}
}

// Recorder is a node capturing its audio input every block. The
// capture buffer is allocated in Prepare, so Process stays
// allocation-free.
type Recorder struct {
	Counter
	Channels int
	captured phonograph.Buffer
}

// NewRecorder returns a recording node.
func NewRecorder(numChannels int) *Recorder {
	return &Recorder{Channels: numChannels}
}

// Prepare implements phonograph.Node.
func (r *Recorder) Prepare(_ phonograph.SampleRate, blockSize phonograph.BufferSize) {
	r.prepared.Add(1)
	r.captured = phonograph.EmptyBuffer(phonograph.NumChannels(r.Channels), blockSize)
}

// Release implements phonograph.Node.
func (r *Recorder) Release() {
	r.released.Add(1)
}

// Process captures the input block.
func (r *Recorder) Process(ctx *phonograph.ProcessContext) {
	r.processed.Add(1)
	channels := len(r.captured)
	if len(ctx.InputAudio) < channels {
		channels = len(ctx.InputAudio)
	}
	for ch := 0; ch < channels; ch++ {
		n := ctx.NumSamples
		if len(r.captured[ch]) < n {
			n = len(r.captured[ch])
		}
		if len(ctx.InputAudio[ch]) < n {
			n = len(ctx.InputAudio[ch])
		}
		copy(r.captured[ch][:n], ctx.InputAudio[ch][:n])
	}
}

// Captured returns the last captured block.
func (r *Recorder) Captured() phonograph.Buffer {
	return r.captured
}

// InputPorts implements phonograph.Node.
func (r *Recorder) InputPorts() []phonograph.Port {
	return []phonograph.Port{{Name: "in", Direction: phonograph.Input, Kind: phonograph.KindAudio, Channels: r.Channels}}
}

// OutputPorts implements phonograph.Node.
func (r *Recorder) OutputPorts() []phonograph.Port {
	return nil
}

// EventSource is a node emitting a fixed sequence of events on its
// event output every block.
type EventSource struct {
	Counter
	Pending []phonograph.Event
}

// Prepare implements phonograph.Node.
func (s *EventSource) Prepare(phonograph.SampleRate, phonograph.BufferSize) {
	s.prepared.Add(1)
}

// Release implements phonograph.Node.
func (s *EventSource) Release() {
	s.released.Add(1)
}

// Process pushes the pending events to the event output.
func (s *EventSource) Process(ctx *phonograph.ProcessContext) {
	s.processed.Add(1)
	for _, e := range s.Pending {
		if !ctx.OutputEvents.Push(e) {
			break
		}
	}
}

// InputPorts implements phonograph.Node.
func (s *EventSource) InputPorts() []phonograph.Port {
	return nil
}

// OutputPorts implements phonograph.Node.
func (s *EventSource) OutputPorts() []phonograph.Port {
	return []phonograph.Port{{Name: "out", Direction: phonograph.Output, Kind: phonograph.KindEvent, Channels: 1}}
}

// EventSink is a node recording the events arriving on its event
// input. Storage is preallocated in Prepare.
type EventSink struct {
	Counter
	received []phonograph.Event
}

// Prepare implements phonograph.Node.
func (s *EventSink) Prepare(phonograph.SampleRate, phonograph.BufferSize) {
	s.prepared.Add(1)
	s.received = make([]phonograph.Event, 0, 256)
}

// Release implements phonograph.Node.
func (s *EventSink) Release() {
	s.released.Add(1)
}

// Process records the events of the current block.
func (s *EventSink) Process(ctx *phonograph.ProcessContext) {
	s.processed.Add(1)
	s.received = s.received[:0]
	for _, e := range ctx.InputEvents.Events() {
		if len(s.received) == cap(s.received) {
			break
		}
		s.received = append(s.received, e)
	}
}

// Received returns the events recorded during the last block.
func (s *EventSink) Received() []phonograph.Event {
	return s.received
}

// InputPorts implements phonograph.Node.
func (s *EventSink) InputPorts() []phonograph.Port {
	return []phonograph.Port{{Name: "in", Direction: phonograph.Input, Kind: phonograph.KindEvent, Channels: 1}}
}

// OutputPorts implements phonograph.Node.
func (s *EventSink) OutputPorts() []phonograph.Port {
	return nil
}

// Router is an event router delivering a fixed set of events to node
// event inputs each block.
type Router struct {
	Events map[int][]phonograph.Event
}

// Route implements the engine event router hook.
func (r *Router) Route(dest map[int]*phonograph.EventBuffer, _ int) {
	for handle, events := range r.Events {
		buf, ok := dest[handle]
		if !ok {
			continue
		}
		for _, e := range events {
			if !buf.Push(e) {
				break
			}
		}
	}
}
