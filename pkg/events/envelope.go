package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps an event for delivery outside the process.
type Envelope struct {
	ID     string    `json:"id"`
	Kind   Kind      `json:"kind"`
	Height uint64    `json:"height"`
	Time   time.Time `json:"time"`
	Event  Event     `json:"event"`
}

// NewEnvelope stamps ev with a fresh id and the current time.
func NewEnvelope(ev Event) Envelope {
	return Envelope{
		ID:     uuid.NewString(),
		Kind:   ev.Kind(),
		Height: ev.BlockHeight(),
		Time:   time.Now().UTC(),
		Event:  ev,
	}
}

// Marshal encodes the envelope as JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseKinds converts names into kinds, rejecting unknown names.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(n)
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
