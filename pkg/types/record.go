package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the wire envelope for one entity version exchanged with the
// remote. Sync metadata travels on the envelope and the domain fields in Data.
//
// UpdatedAt is written by the device that made the change and decides
// conflicts. ServerUpdatedAt is assigned by the remote when it accepts the
// record; it increases strictly across all records the remote accepts, so
// pulls page by it. Pushed records leave it zero.
type Record struct {
	Kind            Kind            `json:"kind"`
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	ServerUpdatedAt time.Time       `json:"server_updated_at,omitzero"`
	Data            json.RawMessage `json:"data"`
}

// Stamp returns the position of r in the remote change feed: ServerUpdatedAt,
// or UpdatedAt for a remote that does not assign one.
func (r Record) Stamp() time.Time {
	if r.ServerUpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.ServerUpdatedAt
}

// Ack is the remote's answer to a pushed record. Applied is false when the
// remote already holds a newer version; Current then carries that version.
type Ack struct {
	Applied   bool      `json:"applied"`
	UpdatedAt time.Time `json:"updated_at"`
	Current   *Record   `json:"current,omitempty"`
}

// ChangePage is one page of remote changes ordered by Stamp.
type ChangePage struct {
	Records []Record `json:"records"`
	HasMore bool     `json:"has_more"`
}

// RecordOf builds the wire record for e.
func RecordOf(e Entity) (Record, error) {
	m := e.Meta()
	data, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s %s: %w", e.Kind(), m.ID, err)
	}
	return Record{
		Kind:      e.Kind(),
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		DeletedAt: m.DeletedAt,
		Data:      data,
	}, nil
}

// Decode returns the entity carried by r with its sync metadata populated
// from the envelope. LocalUpdatedAt and IsSynced are left for the caller.
func (r Record) Decode() (Entity, error) {
	if r.ID == "" {
		return nil, ErrInvalidID
	}
	e, err := NewEntity(r.Kind)
	if err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", r.ID, err)
	}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, e); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", r.Kind, r.ID, err)
		}
	}
	m := e.Meta()
	m.ID = r.ID
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	m.DeletedAt = r.DeletedAt
	return e, nil
}
