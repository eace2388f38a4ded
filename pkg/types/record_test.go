package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOfCarriesMetaOnEnvelope(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := created.Add(time.Hour)
	task := &Task{
		SyncMeta: SyncMeta{
			ID:             "0190a6f0-0000-7000-8000-000000000001",
			CreatedAt:      created,
			UpdatedAt:      updated,
			LocalUpdatedAt: updated,
		},
		ListID:        "list-1",
		Title:         "Write report",
		Priority:      2,
		Status:        StatusTodo,
		EstimatePomos: 1,
		TagIDs:        []string{"tag-b", "tag-a"},
	}

	rec, err := RecordOf(task)
	require.NoError(t, err)
	assert.Equal(t, KindTask, rec.Kind)
	assert.Equal(t, task.ID, rec.ID)
	assert.Equal(t, updated, rec.UpdatedAt)
	assert.Nil(t, rec.DeletedAt)

	var data map[string]any
	require.NoError(t, json.Unmarshal(rec.Data, &data))
	assert.Equal(t, "Write report", data["title"])
	assert.NotContains(t, data, "ID")
	assert.NotContains(t, data, "IsSynced")
	assert.NotContains(t, data, "LocalUpdatedAt")
}

func TestRecordDecode(t *testing.T) {
	deleted := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	rec := Record{
		Kind:      KindHabit,
		ID:        "h1",
		CreatedAt: deleted.Add(-48 * time.Hour),
		UpdatedAt: deleted,
		DeletedAt: &deleted,
		Data:      json.RawMessage(`{"workspace_id":"w1","title":"Read","schedule":{"frequency":"daily","days":[1,2]}}`),
	}

	e, err := rec.Decode()
	require.NoError(t, err)
	h, ok := e.(*Habit)
	require.True(t, ok)
	assert.Equal(t, "h1", h.ID)
	assert.Equal(t, "Read", h.Title)
	assert.Equal(t, []int{1, 2}, h.Schedule.Days)
	assert.True(t, h.Deleted())
	assert.False(t, h.IsSynced)

	_, err = Record{Kind: "nope", ID: "x"}.Decode()
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = Record{Kind: KindTask}.Decode()
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestRecordStamp(t *testing.T) {
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	accepted := updated.Add(time.Hour)

	rec := Record{Kind: KindTask, ID: "a", UpdatedAt: updated}
	assert.Equal(t, updated, rec.Stamp())

	rec.ServerUpdatedAt = accepted
	assert.Equal(t, accepted, rec.Stamp())

	data, err := json.Marshal(Record{Kind: KindTask, ID: "a", UpdatedAt: updated})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "server_updated_at")
}
