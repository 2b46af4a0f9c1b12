// Package portaudio is the reference device driver for the engine: it
// owns the physical audio stream and pulls one block per write from
// the engine's per-block entry point.
package portaudio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/engine"
	"github.com/dudk/phonograph/log"
)

// Playback plays the engine output through the default device.
type Playback struct {
	phonograph.UID
	engine      *engine.Engine
	stream      *portaudio.Stream
	out         phonograph.Buffer
	buf         []float32
	numChannels phonograph.NumChannels
	bufferSize  phonograph.BufferSize
	log         logrus.FieldLogger
}

// NewPlayback returns a new playback for the engine using the default
// device.
func NewPlayback(e *engine.Engine, numChannels phonograph.NumChannels) *Playback {
	p := &Playback{
		UID:         phonograph.NewUID(),
		engine:      e,
		numChannels: numChannels,
		bufferSize:  e.BlockSize(),
	}
	p.log = log.ForComponent("playback", p.ID())
	return p
}

// Start initializes portaudio and opens the default stream with the
// engine's negotiated sample rate and block size.
func (p *Playback) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	p.out = phonograph.EmptyBuffer(p.numChannels, p.bufferSize)
	p.buf = make([]float32, int(p.numChannels)*int(p.bufferSize))
	stream, err := portaudio.OpenDefaultStream(
		0,
		int(p.numChannels),
		float64(p.engine.SampleRate()),
		int(p.bufferSize),
		&p.buf,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open stream: %w", err)
	}
	p.stream = stream
	if err := p.stream.Start(); err != nil {
		p.stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}
	p.log.WithFields(logrus.Fields{
		"sampleRate": p.engine.SampleRate(),
		"blockSize":  p.bufferSize,
		"channels":   p.numChannels,
	}).Info("stream started")
	return nil
}

// Play pulls blocks from the engine and writes them to the stream
// until the context is cancelled. The goroutine running Play is the
// audio thread: no other goroutine may call ProcessBlock while it
// runs.
func (p *Playback) Play(ctx context.Context) error {
	numSamples := int(p.bufferSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		p.engine.ProcessBlock(p.out, numSamples)
		for i := 0; i < numSamples; i++ {
			for ch := range p.out {
				p.buf[i*int(p.numChannels)+ch] = float32(p.out[ch][i])
			}
		}
		if err := p.stream.Write(); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
}

// Stop terminates the stream and portaudio.
func (p *Playback) Stop() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return portaudio.Terminate()
}
