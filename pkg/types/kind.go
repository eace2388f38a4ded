package types

import "fmt"

// Kind names a syncable entity type. The value is also the table name.
type Kind string

// Entity kinds.
const (
	KindWorkspace    Kind = "workspaces"
	KindList         Kind = "lists"
	KindTag          Kind = "tags"
	KindTask         Kind = "tasks"
	KindComment      Kind = "comments"
	KindAttachment   Kind = "attachments"
	KindTimeBlock    Kind = "time_blocks"
	KindHabit        Kind = "habits"
	KindHabitLog     Kind = "habit_logs"
	KindFocusSession Kind = "focus_sessions"
)

// Kinds lists every kind with parents before children. Remote changes are
// applied in this order so a child never arrives before the row it points at.
var Kinds = []Kind{
	KindWorkspace,
	KindList,
	KindTag,
	KindTask,
	KindComment,
	KindAttachment,
	KindTimeBlock,
	KindHabit,
	KindHabitLog,
	KindFocusSession,
}

var kindRank = func() map[Kind]int {
	m := make(map[Kind]int, len(Kinds))
	for i, k := range Kinds {
		m[k] = i
	}
	return m
}()

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindRank[k]
	return ok
}

// Rank is the position of k in the parent-first apply order, or -1.
func (k Kind) Rank() int {
	r, ok := kindRank[k]
	if !ok {
		return -1
	}
	return r
}

func (k Kind) String() string { return string(k) }

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
