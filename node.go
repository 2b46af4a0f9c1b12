package phonograph

// ProcessContext bundles the buffers a node works with during one block.
type ProcessContext struct {
	InputAudio   Buffer
	OutputAudio  Buffer
	InputEvents  *EventBuffer
	OutputEvents *EventBuffer
	NumSamples   int
}

// Node is a unit of audio/event processing addressable by the graph.
//
// Prepare and Release are control-thread lifecycle hooks: Prepare is
// called once before the node enters an active graph or when sample
// rate/block size changes, Release once after no snapshot can
// reference the node anymore. Process is called on the audio thread
// once per block and must neither block nor allocate. Port
// declarations must stay constant for the node's lifetime.
type Node interface {
	Prepare(sampleRate SampleRate, blockSize BufferSize)
	Release()
	Process(ctx *ProcessContext)
	InputPorts() []Port
	OutputPorts() []Port
}

// ParamDescriptor describes a single node parameter.
type ParamDescriptor struct {
	Name        string
	Default     float64
	Steps       int // 0 = continuous, >0 = stepped
	Automatable bool
	Boolean     bool
	Label       string // unit: "dB", "Hz", "%", ""
	Group       string // "" = ungrouped
}

// Parametrized is an optional node capability for string-keyed
// parameter access. All methods are control-thread only.
type Parametrized interface {
	ParamDescriptors() []ParamDescriptor
	Param(name string) float64
	SetParam(name string, value float64)
	ParamText(name string) string
}
