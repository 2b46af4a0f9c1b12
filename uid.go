package phonograph

import "github.com/rs/xid"

// UID is a unique identifier of a long-lived object, used in logs.
type UID struct {
	id string
}

// NewUID returns a new unique id value.
func NewUID() UID {
	return UID{id: xid.New().String()}
}

// ID returns string value of unique identifier.
func (u UID) ID() string {
	return u.id
}
