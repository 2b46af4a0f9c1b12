/*
Package phonograph defines the shared types of a real-time audio
processing graph.

Concept

The engine executes a mutable directed graph of processing nodes. Two
threads interact with it:

    Control thread - edits topology and parameters, may block and allocate;
    Audio thread - executes the graph once per block, must do neither.

The control thread never touches audio-thread state directly. Every
topology change is materialized into an immutable snapshot and handed
over through a lock-free command channel; retired snapshots travel back
the same way for deferred destruction. See the engine package for the
build-and-swap protocol, the graph package for topology and validation,
and the ring and command packages for the cross-thread primitives.

Nodes

Each processing unit implements the Node interface: port declarations
used for connection validation and buffer sizing, Prepare/Release
lifecycle hooks and a per-block Process operation. Nodes carrying
string-keyed parameters additionally implement Parametrized.
*/
package phonograph
