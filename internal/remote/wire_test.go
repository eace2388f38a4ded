package remote

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func assertGolden(t *testing.T, name string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, append(data, '\n'))
}

func TestWireChangePage(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	deleted := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	task := &types.Task{
		ListID:        "list-1",
		Title:         "Write API documentation",
		Priority:      2,
		StartAt:       &start,
		EndAt:         &end,
		Status:        types.StatusTodo,
		EstimatePomos: 1,
		TagIDs:        []string{"tag-work"},
	}
	task.ID = "task-1"
	task.CreatedAt = created
	task.UpdatedAt = created.Add(5 * time.Minute)

	tag := &types.Tag{WorkspaceID: "ws-1", Name: "home", Color: "#10b981"}
	tag.ID = "tag-home"
	tag.CreatedAt = created
	tag.UpdatedAt = deleted
	tag.DeletedAt = &deleted

	taskRec, err := types.RecordOf(task)
	require.NoError(t, err)
	tagRec, err := types.RecordOf(tag)
	require.NoError(t, err)

	assertGolden(t, "change_page", types.ChangePage{Records: []types.Record{taskRec, tagRec}})
	assertGolden(t, "ack_rejected", types.Ack{Applied: false, UpdatedAt: deleted, Current: &tagRec})
}
