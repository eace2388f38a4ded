package types

import "time"

// SyncMeta holds the change-tracking fields carried by every syncable entity.
type SyncMeta struct {
	ID             string     // UUID v7, generated locally, never reused.
	CreatedAt      time.Time  // Set once on creation.
	UpdatedAt      time.Time  // Authoritative modification time.
	LocalUpdatedAt time.Time  // Last time this device touched the row, merges included.
	DeletedAt      *time.Time // Tombstone; nil while the entity is live.
	IsSynced       bool       // False while a local change awaits push.
}

// Meta returns m. Embedding SyncMeta gives an entity this method.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Deleted reports whether the entity carries a tombstone.
func (m *SyncMeta) Deleted() bool { return m.DeletedAt != nil }

// Entity is implemented by every syncable entity type.
type Entity interface {
	Kind() Kind
	Meta() *SyncMeta
}

// NewEntity returns an empty entity value for kind.
func NewEntity(kind Kind) (Entity, error) {
	switch kind {
	case KindWorkspace:
		return &Workspace{}, nil
	case KindList:
		return &List{}, nil
	case KindTag:
		return &Tag{}, nil
	case KindTask:
		return &Task{}, nil
	case KindComment:
		return &Comment{}, nil
	case KindAttachment:
		return &Attachment{}, nil
	case KindTimeBlock:
		return &TimeBlock{}, nil
	case KindHabit:
		return &Habit{}, nil
	case KindHabitLog:
		return &HabitLog{}, nil
	case KindFocusSession:
		return &FocusSession{}, nil
	}
	return nil, ErrUnknownKind
}

// Change operations reported to change hooks.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change describes one committed local mutation.
type Change struct {
	Kind Kind
	ID   string
	Op   string
	At   time.Time
}
