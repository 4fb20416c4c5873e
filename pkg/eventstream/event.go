package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/mnemohq/mnemo/pkg/record"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRecordPersisted is emitted after a memory record write is
	// durable, covering creates, updates and soft deletes.
	EventTypeRecordPersisted = "mnemo.record.persisted"
)

// RecordPersistedEvent is a transport-neutral event payload for a
// persisted memory record. Vault secret values never appear in events.
type RecordPersistedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Record        RecordMeta  `json:"record"`
}

// EventSource identifies the tenant scope the write happened under.
type EventSource struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
}

// RecordMeta captures the persisted record's identity and the revision
// that produced this event.
type RecordMeta struct {
	ID           string         `json:"id"`
	Variant      record.Variant `json:"variant"`
	TreePath     string         `json:"tree_path,omitempty"`
	RevisionNote string         `json:"revision_note,omitempty"`
	Deleted      bool           `json:"deleted,omitempty"`
}

// NewRecordPersistedEvent builds a v1 event for a persisted record.
func NewRecordPersistedEvent(rec *record.Record, revisionNote string, deleted bool) *RecordPersistedEvent {
	return &RecordPersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRecordPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			OrganizationID: rec.OrganizationID,
			UserID:         rec.UserID,
		},
		Record: RecordMeta{
			ID:           rec.ID,
			Variant:      rec.Variant,
			TreePath:     rec.TreePath.String(),
			RevisionNote: revisionNote,
			Deleted:      deleted,
		},
	}
}
