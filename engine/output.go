package engine

import "github.com/dudk/phonograph"

// terminalNode is the built-in sink of every graph. It declares a
// single audio input whose summed buffer ProcessBlock copies to the
// physical output channels; processing itself is a no-op.
type terminalNode struct {
	channels phonograph.NumChannels
}

func (t *terminalNode) Prepare(phonograph.SampleRate, phonograph.BufferSize) {}

func (t *terminalNode) Release() {}

func (t *terminalNode) Process(*phonograph.ProcessContext) {}

func (t *terminalNode) InputPorts() []phonograph.Port {
	return []phonograph.Port{{
		Name:      TerminalPort,
		Direction: phonograph.Input,
		Kind:      phonograph.KindAudio,
		Channels:  int(t.channels),
	}}
}

func (t *terminalNode) OutputPorts() []phonograph.Port {
	return nil
}
