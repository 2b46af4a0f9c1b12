package phonograph

import (
	"github.com/go-audio/audio"
)

// SampleRate represents a sample rate value.
type SampleRate int

// BufferSize represents a buffer size value.
type BufferSize int

// NumChannels represents a number of channels.
type NumChannels int

// Buffer is a non-interleaved block of samples, first dimension is
// for channels.
type Buffer [][]float64

// EmptyBuffer returns an empty buffer of specified dimentions.
func EmptyBuffer(numChannels NumChannels, bufferSize BufferSize) Buffer {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns number of channels in this buffer.
func (b Buffer) NumChannels() NumChannels {
	return NumChannels(len(b))
}

// Size returns number of samples per channel.
func (b Buffer) Size() BufferSize {
	if len(b) == 0 || b[0] == nil {
		return 0
	}
	return BufferSize(len(b[0]))
}

// Clear zeroes all samples in the buffer. It never allocates and is
// safe to call on the audio thread.
func (b Buffer) Clear() {
	for ch := range b {
		for i := range b[ch] {
			b[ch][i] = 0
		}
	}
}

// Sum adds samples of the source buffer to this buffer. Channel count
// is the minimum of the two, sample count is the minimum of both
// channel lengths and numSamples. It never allocates.
func (b Buffer) Sum(src Buffer, numSamples int) {
	channels := len(b)
	if len(src) < channels {
		channels = len(src)
	}
	for ch := 0; ch < channels; ch++ {
		n := numSamples
		if len(b[ch]) < n {
			n = len(b[ch])
		}
		if len(src[ch]) < n {
			n = len(src[ch])
		}
		for i := 0; i < n; i++ {
			b[ch][i] += src[ch][i]
		}
	}
}

// AsAudioBuffer converts the buffer to an interleaved audio.FloatBuffer.
func (b Buffer) AsAudioBuffer(sampleRate SampleRate) *audio.FloatBuffer {
	numChannels := len(b)
	if numChannels == 0 {
		return nil
	}
	data := make([]float64, int(b.Size())*numChannels)
	for ch := range b {
		for i := range b[ch] {
			data[i*numChannels+ch] = b[ch][i]
		}
	}
	return &audio.FloatBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  int(sampleRate),
		},
		Data: data,
	}
}

// BufferFromAudio converts an interleaved audio.FloatBuffer to a buffer.
func BufferFromAudio(buf *audio.FloatBuffer) Buffer {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil
	}
	numChannels := buf.Format.NumChannels
	b := EmptyBuffer(NumChannels(numChannels), BufferSize(buf.NumFrames()))
	for ch := range b {
		for i := range b[ch] {
			b[ch][i] = buf.Data[i*numChannels+ch]
		}
	}
	return b
}
