package counting

import (
	"testing"

	"github.com/garyjia/stocktake/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	r := NewRegistry(sampleMaster())

	a, err := r.SessionFor("A")
	require.NoError(t, err)
	enter(a, 7)
	a.Advance()
	enter(a, 3)
	a.Advance()
	require.NoError(t, r.MergeFinished(a))

	b, err := r.SessionFor("B")
	require.NoError(t, err)
	enter(b, 2)

	restored, err := RestoreRegistry(r.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, r.Items(), restored.Items())
	assert.Equal(t, r.GlobalSummary(), restored.GlobalSummary())

	ra, ok := restored.Session("A")
	require.True(t, ok)
	assert.True(t, ra.Finished())
	assert.Equal(t, 1, ra.Cursor())

	rb, ok := restored.Session("B")
	require.True(t, ok)
	assert.False(t, rb.Finished())
	assert.Equal(t, []int{2}, rb.Quantities())
}

func TestSnapshot_OnlyOpenedSessions(t *testing.T) {
	r := NewRegistry(sampleMaster())
	_, err := r.SessionFor("B")
	require.NoError(t, err)

	snap := r.Snapshot()
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, "B", snap.Sessions[0].Area)
}

func TestRestoreRegistry_Invalid(t *testing.T) {
	items := sampleMaster()

	tests := []struct {
		name     string
		sessions []SessionSnapshot
	}{
		{"unknown area", []SessionSnapshot{{Area: "Q", Quantities: []int{1}}}},
		{"wrong quantity count", []SessionSnapshot{{Area: "A", Quantities: []int{1}}}},
		{"cursor out of range", []SessionSnapshot{{Area: "B", Quantities: []int{1}, Cursor: 3}}},
		{"negative quantity", []SessionSnapshot{{Area: "B", Quantities: []int{-1}}}},
		{"duplicate area", []SessionSnapshot{
			{Area: "B", Quantities: []int{1}},
			{Area: "B", Quantities: []int{2}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RestoreRegistry(Snapshot{Items: entity.CloneItems(items), Sessions: tt.sessions})
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
		})
	}
}
