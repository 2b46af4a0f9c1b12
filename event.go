package phonograph

// Event is a short timed control message, e.g. a note or a controller
// change. Offset is the sample frame within the current block.
type Event struct {
	Offset int
	Status byte
	Data1  byte
	Data2  byte
}

// EventBuffer is a fixed-capacity collection of events for one block.
// All mutating methods reuse the backing storage and never allocate,
// so the buffer is safe to use on the audio thread once constructed.
type EventBuffer struct {
	events []Event
}

// NewEventBuffer returns an empty event buffer with fixed capacity.
func NewEventBuffer(capacity int) *EventBuffer {
	return &EventBuffer{events: make([]Event, 0, capacity)}
}

// Clear drops all events, keeping the storage.
func (b *EventBuffer) Clear() {
	b.events = b.events[:0]
}

// Push appends an event. It returns false and drops the event when the
// buffer is full.
func (b *EventBuffer) Push(e Event) bool {
	if len(b.events) == cap(b.events) {
		return false
	}
	b.events = append(b.events, e)
	return true
}

// Merge appends all events of the source buffer and returns the number
// of events actually merged. Events beyond capacity are dropped.
func (b *EventBuffer) Merge(src *EventBuffer) int {
	count := 0
	for _, e := range src.events {
		if !b.Push(e) {
			break
		}
		count++
	}
	return count
}

// Events returns the events pushed since the last Clear. The returned
// slice is valid until the next mutation.
func (b *EventBuffer) Events() []Event {
	return b.events
}

// Len returns the number of events in the buffer.
func (b *EventBuffer) Len() int {
	return len(b.events)
}

// Cap returns the buffer capacity.
func (b *EventBuffer) Cap() int {
	return cap(b.events)
}
