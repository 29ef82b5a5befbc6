package completion

import "github.com/google/uuid"

// BufferID is an opaque handle for an open buffer. It is decoupled from any
// editor object identity.
type BufferID uuid.UUID

// NilBufferID is the zero handle.
var NilBufferID BufferID

// NewBufferID returns a fresh random handle.
func NewBufferID() BufferID {
	return BufferID(uuid.New())
}

// ParseBufferID parses the textual form produced by String.
func ParseBufferID(s string) (BufferID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilBufferID, err
	}
	return BufferID(id), nil
}

func (id BufferID) String() string {
	return uuid.UUID(id).String()
}
