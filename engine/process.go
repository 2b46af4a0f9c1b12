package engine

import (
	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/command"
)

// ProcessBlock executes the active snapshot once and writes the result
// into out. Audio thread only. It never blocks, never allocates and
// recognizes no recoverable errors beyond skipping a node: it always
// produces some output, silence in the worst case.
//
// Per block, in order: drain pending commands, clear event inputs,
// deliver external events through the router, process nodes in
// execution order with fan-in summing/merging, copy the terminal
// node's input to out.
func (e *Engine) ProcessBlock(out phonograph.Buffer, numSamples int) {
	e.commands.ProcessPending(e.drainFn)

	snap := e.active.Load()
	if snap == nil {
		silence(out, numSamples)
		return
	}

	for _, st := range snap.states {
		st.ctx.InputEvents.Clear()
	}
	if e.router != nil {
		e.router.Route(snap.eventInputs, numSamples)
	}

	for _, handle := range snap.order {
		st, ok := snap.states[handle]
		if !ok {
			// snapshot inconsistency, skip instead of faulting
			continue
		}
		st.ctx.InputAudio.Clear()
		for _, src := range snap.audioFanIn[handle] {
			srcState, ok := snap.states[src]
			if !ok {
				continue
			}
			st.ctx.InputAudio.Sum(srcState.ctx.OutputAudio, numSamples)
		}
		for _, src := range snap.eventFanIn[handle] {
			srcState, ok := snap.states[src]
			if !ok {
				continue
			}
			st.ctx.InputEvents.Merge(srcState.ctx.OutputEvents)
		}
		st.ctx.OutputAudio.Clear()
		st.ctx.OutputEvents.Clear()
		st.ctx.NumSamples = numSamples
		st.node.Process(&st.ctx)
	}

	term, ok := snap.states[snap.terminal]
	if !ok {
		silence(out, numSamples)
		return
	}
	in := term.ctx.InputAudio
	channels := len(out)
	if len(in) < channels {
		channels = len(in)
	}
	for ch := 0; ch < channels; ch++ {
		n := numSamples
		if len(out[ch]) < n {
			n = len(out[ch])
		}
		if len(in[ch]) < n {
			n = len(in[ch])
		}
		copy(out[ch][:n], in[ch][:n])
		zeroTail(out[ch], n, numSamples)
	}
	for ch := channels; ch < len(out); ch++ {
		zeroTail(out[ch], 0, numSamples)
	}
}

// handleCommand applies one command on the audio thread. A swap
// replaces the active-snapshot pointer atomically and retires the
// previous snapshot through the garbage queue, never destroying it
// here. Every other command is opaque payload for the handler.
func (e *Engine) handleCommand(cmd command.Command) {
	switch cmd.Type {
	case command.SwapSnapshot:
		snap, ok := cmd.Ptr.(*Snapshot)
		if !ok {
			return
		}
		if old := e.active.Swap(snap); old != nil {
			e.commands.SendGarbage(command.GarbageItem{Ptr: old, Free: e.freeFn})
		}
	default:
		if e.handler != nil {
			e.handler(cmd)
		}
	}
}

// Render drives the audio-thread role synchronously for one block and
// returns the produced buffer. For tests and offline use, it must not
// be called concurrently with ProcessBlock.
func (e *Engine) Render(numSamples int) phonograph.Buffer {
	out := phonograph.EmptyBuffer(e.termChannels, phonograph.BufferSize(numSamples))
	e.ProcessBlock(out, numSamples)
	return out
}

func silence(out phonograph.Buffer, numSamples int) {
	for ch := range out {
		zeroTail(out[ch], 0, numSamples)
	}
}

func zeroTail(samples []float64, from, to int) {
	if to > len(samples) {
		to = len(samples)
	}
	for i := from; i < to; i++ {
		samples[i] = 0
	}
}
