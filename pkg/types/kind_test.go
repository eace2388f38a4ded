package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsParentsFirst(t *testing.T) {
	before := func(parent, child Kind) {
		t.Helper()
		assert.Less(t, parent.Rank(), child.Rank(), "%s must precede %s", parent, child)
	}
	before(KindWorkspace, KindList)
	before(KindWorkspace, KindTag)
	before(KindList, KindTask)
	before(KindTag, KindTask)
	before(KindTask, KindComment)
	before(KindTask, KindAttachment)
	before(KindTask, KindTimeBlock)
	before(KindTask, KindFocusSession)
	before(KindHabit, KindHabitLog)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)

		e, err := NewEntity(k)
		require.NoError(t, err)
		assert.Equal(t, k, e.Kind())
	}

	_, err := ParseKind("crumbs")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, -1, Kind("crumbs").Rank())
}
