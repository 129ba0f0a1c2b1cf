package counting

import (
	"errors"
	"testing"

	"github.com/garyjia/stocktake/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMaster() []entity.Item {
	return []entity.Item{
		{Area: "A", Description: "x"},
		{Area: "A", Description: "y"},
		{Area: "B", Description: "z"},
	}
}

func TestRegistry_Areas(t *testing.T) {
	r := NewRegistry([]entity.Item{
		{Area: "Bar", Description: "1"},
		{Area: "Cellar", Description: "2"},
		{Area: "Bar", Description: "3"},
	})
	assert.Equal(t, []string{"Bar", "Cellar"}, r.Areas())
	assert.True(t, r.HasArea("Cellar"))
	assert.False(t, r.HasArea("Kitchen"))
}

func TestRegistry_SessionFor(t *testing.T) {
	t.Run("seeds from master in source order", func(t *testing.T) {
		r := NewRegistry([]entity.Item{
			{Area: "A", Description: "x", Quantity: 2},
			{Area: "B", Description: "q", Quantity: 9},
			{Area: "A", Description: "y", Quantity: 5},
		})

		s, err := r.SessionFor("A")
		require.NoError(t, err)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, []int{2, 5}, s.Quantities())

		cur, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, "x", cur.Description)
	})

	t.Run("does not re-seed on repeated calls", func(t *testing.T) {
		r := NewRegistry(sampleMaster())
		s, err := r.SessionFor("A")
		require.NoError(t, err)
		enter(s, 8)
		s.Advance()

		again, err := r.SessionFor("A")
		require.NoError(t, err)
		assert.Same(t, s, again)
		assert.Equal(t, []int{8, 0}, again.Quantities())
		assert.Equal(t, 1, again.Cursor())
	})

	t.Run("unknown area", func(t *testing.T) {
		r := NewRegistry(sampleMaster())
		_, err := r.SessionFor("C")
		assert.ErrorIs(t, err, ErrUnknownArea)

		_, ok := r.Session("C")
		assert.False(t, ok)
	})
}

func TestRegistry_MergeAndExport(t *testing.T) {
	r := NewRegistry(sampleMaster())

	s, err := r.SessionFor("A")
	require.NoError(t, err)
	enter(s, 7)
	s.Advance()
	enter(s, 3)
	s.Advance()
	require.True(t, s.Finished())

	require.NoError(t, r.MergeFinished(s))

	data, err := r.ExportAll()
	require.NoError(t, err)
	assert.Equal(t, "Area,Description,Qty\nA,x,7\nA,y,3\nB,z,0\n", string(data))
}

func TestRegistry_MergeRequiresFinished(t *testing.T) {
	r := NewRegistry(sampleMaster())
	s, err := r.SessionFor("A")
	require.NoError(t, err)
	enter(s, 4)

	err = r.MergeFinished(s)
	assert.ErrorIs(t, err, ErrSessionNotFinished)
	assert.Equal(t, 0, r.Items()[0].Quantity)
}

func TestRegistry_MergeConsistency(t *testing.T) {
	tests := []struct {
		name       string
		master     []entity.Item
		session    *Session
		wantReason string
	}{
		{
			name:       "description missing from master",
			master:     sampleMaster(),
			session:    NewSession("A", []entity.Item{{Description: "x", Quantity: 1}, {Description: "ghost", Quantity: 2}}),
			wantReason: ReasonNotInMaster,
		},
		{
			name:       "description duplicated in session",
			master:     sampleMaster(),
			session:    NewSession("A", []entity.Item{{Description: "x", Quantity: 1}, {Description: "x", Quantity: 2}}),
			wantReason: ReasonDuplicateInSession,
		},
		{
			name: "description duplicated in master",
			master: []entity.Item{
				{Area: "A", Description: "x"},
				{Area: "A", Description: "x"},
				{Area: "A", Description: "y"},
			},
			session:    NewSession("A", []entity.Item{{Description: "y", Quantity: 5}, {Description: "x", Quantity: 1}}),
			wantReason: ReasonDuplicateInMaster,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.master)
			before := r.Items()
			tt.session.FinishNow()

			err := r.MergeFinished(tt.session)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMergeConsistency)

			var mce *MergeConsistencyError
			require.True(t, errors.As(err, &mce))
			assert.Equal(t, tt.wantReason, mce.Reason)
			assert.Equal(t, "A", mce.Area)

			assert.Equal(t, before, r.Items(), "failed merge must not write any row")
		})
	}
}

func TestRegistry_GlobalSummary(t *testing.T) {
	master := []entity.Item{
		{Area: "A", Description: "a1", Quantity: 1},
		{Area: "A", Description: "a2", Quantity: 1},
		{Area: "A", Description: "a3", Quantity: 1},
		{Area: "B", Description: "b1", Quantity: 2},
		{Area: "B", Description: "b2", Quantity: 0},
		{Area: "B", Description: "b3", Quantity: 4},
		{Area: "B", Description: "b4", Quantity: 0},
		{Area: "B", Description: "b5", Quantity: 1},
	}
	r := NewRegistry(master)

	s, err := r.SessionFor("A")
	require.NoError(t, err)
	s.Restart()
	enter(s, 1, 0)
	s.Advance()
	s.Advance()
	enter(s, 5)
	s.Advance()
	require.NoError(t, r.MergeFinished(s))

	got := r.GlobalSummary()
	require.Len(t, got, 2)
	assert.Equal(t, entity.AreaSummary{Area: "A", TotalItems: 3, TotalQuantity: 15, ZeroCountItems: 1}, got[0])
	assert.Equal(t, entity.AreaSummary{Area: "B", TotalItems: 5, TotalQuantity: 7, ZeroCountItems: 2}, got[1])

	total := r.Total()
	assert.Equal(t, TotalLabel, total.Area)
	assert.Equal(t, 8, total.TotalItems)
	assert.Equal(t, 15+7, total.TotalQuantity)
	assert.Equal(t, 3, total.ZeroCountItems)
}

func TestRegistry_SummaryUsesLiveSessionCounts(t *testing.T) {
	r := NewRegistry(sampleMaster())
	s, err := r.SessionFor("B")
	require.NoError(t, err)
	enter(s, 6)

	sum, err := r.AreaSummary("B")
	require.NoError(t, err)
	assert.Equal(t, 6, sum.TotalQuantity)

	// The master list only changes on merge
	assert.Equal(t, 0, r.Items()[2].Quantity)

	_, err = r.AreaSummary("nope")
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestRegistry_ExportArea(t *testing.T) {
	r := NewRegistry(sampleMaster())

	data, err := r.ExportArea("B")
	require.NoError(t, err)
	assert.Equal(t, "Area,Description,Qty\nB,z,0\n", string(data))

	s, err := r.SessionFor("A")
	require.NoError(t, err)
	enter(s, 2)

	data, err = r.ExportArea("A")
	require.NoError(t, err)
	assert.Equal(t, "Area,Description,Qty\nA,x,2\nA,y,0\n", string(data))

	_, err = r.ExportArea("C")
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestRegistry_Restart(t *testing.T) {
	r := NewRegistry([]entity.Item{{Area: "A", Description: "x", Quantity: 11}})

	s, err := r.Restart("A")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s.Quantities())

	_, err = r.Restart("Z")
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestRegistry_CopiesInput(t *testing.T) {
	master := sampleMaster()
	r := NewRegistry(master)
	master[0].Quantity = 50

	assert.Equal(t, 0, r.Items()[0].Quantity)
}
