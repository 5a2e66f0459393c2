package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   uint64
	Name string
}

func TestInsert_AssignsMonotonicIDs(t *testing.T) {
	r := New[widget]()
	id1 := r.Insert(func(id uint64) widget { return widget{ID: id, Name: "a"} })
	id2 := r.Insert(func(id uint64) widget { return widget{ID: id, Name: "b"} })
	require.Equal(t, uint64(1), id1)
	require.Equal(t, uint64(2), id2)
}

func TestGet_ReturnsNotFoundForUnknownID(t *testing.T) {
	r := New[widget]()
	_, err := r.Get(1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_ReplacesActiveEntry(t *testing.T) {
	r := New[widget]()
	id := r.Insert(func(id uint64) widget { return widget{ID: id, Name: "a"} })
	require.NoError(t, r.Update(id, widget{ID: id, Name: "b"}))

	got, err := r.Get(id)
	require.NoError(t, err)
	require.Equal(t, "b", got.Name)
}

func TestUpdate_RejectsUnknownID(t *testing.T) {
	r := New[widget]()
	require.ErrorIs(t, r.Update(99, widget{}), ErrNotFound)
}

func TestIter_VisitsInAscendingOrder(t *testing.T) {
	r := New[widget]()
	r.Insert(func(id uint64) widget { return widget{ID: id} })
	r.Insert(func(id uint64) widget { return widget{ID: id} })
	r.Insert(func(id uint64) widget { return widget{ID: id} })

	var seen []uint64
	r.Iter(func(id uint64, v widget) bool {
		seen = append(seen, id)
		return true
	})
	require.Equal(t, []uint64{1, 2, 3}, seen)
}

func TestIter_StopsWhenCallbackReturnsFalse(t *testing.T) {
	r := New[widget]()
	r.Insert(func(id uint64) widget { return widget{ID: id} })
	r.Insert(func(id uint64) widget { return widget{ID: id} })
	r.Insert(func(id uint64) widget { return widget{ID: id} })

	var seen []uint64
	r.Iter(func(id uint64, v widget) bool {
		seen = append(seen, id)
		return id < 2
	})
	require.Equal(t, []uint64{1, 2}, seen)
}

func TestRange_ReturnsEntriesWithinBounds(t *testing.T) {
	r := New[widget]()
	for i := 0; i < 5; i++ {
		r.Insert(func(id uint64) widget { return widget{ID: id} })
	}
	got := r.Range(2, 4)
	require.Len(t, got, 3)
	require.Equal(t, uint64(2), got[0].ID)
	require.Equal(t, uint64(4), got[2].ID)
}

func TestArchiveUpTo_MovesEntriesOutOfActiveMap(t *testing.T) {
	r := New[widget]()
	id1 := r.Insert(func(id uint64) widget { return widget{ID: id} })
	id2 := r.Insert(func(id uint64) widget { return widget{ID: id} })

	moved := r.ArchiveUpTo(id1)
	require.Equal(t, 1, moved)
	require.Equal(t, 1, r.Len())

	// Archived entries remain readable via Get...
	_, err := r.Get(id1)
	require.NoError(t, err)
	// ...but are no longer mutable.
	require.ErrorIs(t, r.Update(id1, widget{}), ErrNotFound)

	_, err = r.Get(id2)
	require.NoError(t, err)
}

func TestCounter_TracksLastAssignedID(t *testing.T) {
	r := New[widget]()
	require.Equal(t, uint64(0), r.Counter())
	r.Insert(func(id uint64) widget { return widget{ID: id} })
	r.Insert(func(id uint64) widget { return widget{ID: id} })
	require.Equal(t, uint64(2), r.Counter())
}

func TestCounter_NeverReusesIDsAcrossArchive(t *testing.T) {
	r := New[widget]()
	id1 := r.Insert(func(id uint64) widget { return widget{ID: id} })
	r.ArchiveUpTo(id1)
	id2 := r.Insert(func(id uint64) widget { return widget{ID: id} })
	require.NotEqual(t, id1, id2)
	require.Equal(t, uint64(2), id2)
}

func TestLen_CountsOnlyActiveEntries(t *testing.T) {
	r := New[widget]()
	require.Equal(t, 0, r.Len())
	r.Insert(func(id uint64) widget { return widget{ID: id} })
	require.Equal(t, 1, r.Len())
}
