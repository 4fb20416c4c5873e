package record

import "time"

// Revision is the application-level revision note carried by every
// mutation, distinct from the technical updated_at column. It is always
// caller-supplied; storage never auto-populates it.
type Revision struct {
	At    time.Time `json:"at"`
	Actor string    `json:"actor"`
	Note  string    `json:"note"`
}

// NewRevision stamps a revision note with the current time.
func NewRevision(actor, note string) Revision {
	return Revision{At: time.Now().UTC(), Actor: actor, Note: note}
}
