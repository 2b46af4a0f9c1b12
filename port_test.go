package phonograph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/phonograph"
)

func TestCanConnect(t *testing.T) {
	audioOut := phonograph.Port{Name: "out", Direction: phonograph.Output, Kind: phonograph.KindAudio, Channels: 2}
	audioIn := phonograph.Port{Name: "in", Direction: phonograph.Input, Kind: phonograph.KindAudio, Channels: 2}
	monoIn := phonograph.Port{Name: "in", Direction: phonograph.Input, Kind: phonograph.KindAudio, Channels: 1}
	eventOut := phonograph.Port{Name: "events", Direction: phonograph.Output, Kind: phonograph.KindEvent, Channels: 1}
	eventIn := phonograph.Port{Name: "events", Direction: phonograph.Input, Kind: phonograph.KindEvent, Channels: 1}
	wideEventIn := phonograph.Port{Name: "events", Direction: phonograph.Input, Kind: phonograph.KindEvent, Channels: 2}

	tests := []struct {
		description string
		src         phonograph.Port
		dst         phonograph.Port
		expected    bool
	}{
		{"audio to audio", audioOut, audioIn, true},
		{"audio channel counts may differ", audioOut, monoIn, true},
		{"event to event", eventOut, eventIn, true},
		{"input as source", audioIn, audioIn, false},
		{"output as destination", audioOut, audioOut, false},
		{"kind mismatch", audioOut, eventIn, false},
		{"multichannel event port", eventOut, wideEventIn, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, phonograph.CanConnect(test.src, test.dst), test.description)
	}
}

func TestFindPort(t *testing.T) {
	ports := []phonograph.Port{
		{Name: "in", Direction: phonograph.Input, Kind: phonograph.KindAudio, Channels: 2},
		{Name: "events", Direction: phonograph.Input, Kind: phonograph.KindEvent, Channels: 1},
	}

	p, ok := phonograph.FindPort(ports, "events")
	assert.True(t, ok)
	assert.Equal(t, phonograph.KindEvent, p.Kind)

	_, ok = phonograph.FindPort(ports, "sidechain")
	assert.False(t, ok)
}

func TestPortAddressString(t *testing.T) {
	assert.Equal(t, "3:out", phonograph.PortAddress{Node: 3, Port: "out"}.String())
}

func TestSignalKindString(t *testing.T) {
	assert.Equal(t, "audio", phonograph.KindAudio.String())
	assert.Equal(t, "event", phonograph.KindEvent.String())
	assert.Equal(t, "unknown", phonograph.SignalKind(42).String())
}
