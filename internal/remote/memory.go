package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/cling/internal/syncer"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// ErrInvalidRecord is returned for a pushed record missing its kind, id or
// updated_at.
var ErrInvalidRecord = errors.New("invalid record")

type recordKey struct {
	kind types.Kind
	id   string
}

// Memory is an in-memory sync authority. It keeps the latest accepted
// version of every record and accepts a push when the incoming version
// wins under the same rule the client applies to conflicts. Every accepted
// change gets a fresh ServerUpdatedAt, later than any before it.
type Memory struct {
	mu      sync.RWMutex
	records map[recordKey]types.Record
	now     func() time.Time
	last    time.Time
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithMemoryClock sets the clock the authority stamps accepted records with.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory returns an empty authority.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{records: make(map[recordKey]types.Record), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stamp returns the next acceptance time. Callers hold m.mu.
func (m *Memory) stamp() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}
	m.last = t
	return t
}

// Push accepts rec if it is newer than the stored version, or the same
// version pushed again. Otherwise the Ack carries the stored version.
func (m *Memory) Push(ctx context.Context, rec types.Record) (types.Ack, error) {
	if err := ctx.Err(); err != nil {
		return types.Ack{}, err
	}
	if !rec.Kind.Valid() || rec.ID == "" || rec.UpdatedAt.IsZero() {
		return types.Ack{}, fmt.Errorf("%w: kind %q id %q", ErrInvalidRecord, rec.Kind, rec.ID)
	}
	k := recordKey{rec.Kind, rec.ID}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[k]
	if ok && !accepts(cur, rec) {
		c := copyRecord(cur)
		return types.Ack{Applied: false, UpdatedAt: cur.UpdatedAt, Current: &c}, nil
	}
	stored := copyRecord(rec)
	if ok && sameVersion(cur, rec) {
		// A re-push of the stored version is not a new change.
		stored.ServerUpdatedAt = cur.ServerUpdatedAt
	} else {
		stored.ServerUpdatedAt = m.stamp()
	}
	m.records[k] = stored
	return types.Ack{Applied: true, UpdatedAt: rec.UpdatedAt}, nil
}

func sameVersion(a, b types.Record) bool {
	return a.UpdatedAt.Equal(b.UpdatedAt) && (a.DeletedAt != nil) == (b.DeletedAt != nil)
}

func accepts(cur, in types.Record) bool {
	if sameVersion(cur, in) {
		return true
	}
	w, err := syncer.Resolve(
		syncer.Version{At: cur.UpdatedAt, Deleted: cur.DeletedAt != nil},
		syncer.Version{At: in.UpdatedAt, Deleted: in.DeletedAt != nil},
	)
	return err == nil && w == syncer.TakeRemote
}

// Changes returns records accepted strictly after since, ordered by
// ServerUpdatedAt, at most limit per page. A limit of zero or less returns
// everything.
func (m *Memory) Changes(ctx context.Context, since time.Time, limit int) (types.ChangePage, error) {
	if err := ctx.Err(); err != nil {
		return types.ChangePage{}, err
	}
	m.mu.RLock()
	all := make([]types.Record, 0, len(m.records))
	for _, rec := range m.records {
		if rec.ServerUpdatedAt.After(since) {
			all = append(all, copyRecord(rec))
		}
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].ServerUpdatedAt.Before(all[j].ServerUpdatedAt)
	})

	n := len(all)
	if limit > 0 && limit < n {
		n = limit
	}
	return types.ChangePage{Records: all[:n], HasMore: n < len(all)}, nil
}

// Get returns the stored version of a record.
func (m *Memory) Get(kind types.Kind, id string) (types.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{kind, id}]
	if !ok {
		return types.Record{}, false
	}
	return copyRecord(rec), true
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func copyRecord(r types.Record) types.Record {
	out := r
	out.Data = append([]byte(nil), r.Data...)
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

var _ syncer.Remote = (*Memory)(nil)
