package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// Clock hands out strictly increasing UTC timestamps so that every local
// write advances local_updated_at, even within one clock tick. Observing a
// remote timestamp moves the clock past it, so an edit made after a pull
// always sorts after the version it replaced.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock returns a Clock reading wall time from now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns a timestamp later than any previously returned or observed.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// Observe ensures later calls to Now return times after t.
func (c *Clock) Observe(t time.Time) {
	c.mu.Lock()
	if t.After(c.last) {
		c.last = t.UTC()
	}
	c.mu.Unlock()
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}

// trackCreate stamps a new entity: fresh id, all three timestamps equal,
// live and dirty.
func (s *Store) trackCreate(e types.Entity) error {
	m := e.Meta()
	if m.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		m.ID = id
	}
	now := s.clock.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.LocalUpdatedAt = now
	m.DeletedAt = nil
	m.IsSynced = false
	s.queue(e, types.OpCreate, now)
	return nil
}

// trackUpdate stamps a local modification.
func (s *Store) trackUpdate(e types.Entity) {
	m := e.Meta()
	now := s.clock.Now()
	m.UpdatedAt = now
	m.LocalUpdatedAt = now
	m.IsSynced = false
	s.queue(e, types.OpUpdate, now)
}

// trackDelete stamps a tombstone. updated_at moves with it so the delete
// outranks earlier edits on other devices.
func (s *Store) trackDelete(e types.Entity) {
	m := e.Meta()
	now := s.clock.Now()
	m.DeletedAt = &now
	m.UpdatedAt = now
	m.LocalUpdatedAt = now
	m.IsSynced = false
	s.queue(e, types.OpDelete, now)
}

func (s *Store) queue(e types.Entity, op string, at time.Time) {
	c := types.Change{Kind: e.Kind(), ID: e.Meta().ID, Op: op, At: at}
	if s.pending != nil {
		*s.pending = append(*s.pending, c)
		return
	}
	s.hooks.emit([]types.Change{c})
}
