package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectorySplitAtPtrInsertsAfterChild(t *testing.T) {
	d := NewDirectory(100)
	require.NoError(t, d.SplitAtPtr(100, 10, 200))
	require.NoError(t, d.SplitAtPtr(200, 20, 300))

	assert.Equal(t, []uint32{10, 20}, d.Keys)
	assert.Equal(t, []Pointer{100, 200, 300}, d.Pointers)
}

func TestDirectorySplitAtPtrRejectsUnknownChild(t *testing.T) {
	d := NewDirectory(100)
	err := d.SplitAtPtr(999, 10, 200)
	assert.Error(t, err)
}

func TestDirectorySplitAtPtrReturnsErrFullWhenFull(t *testing.T) {
	d := NewDirectory(0)
	for i := 0; i < DirKeyCount; i++ {
		require.NoError(t, d.SplitAtPtr(d.Pointers[len(d.Pointers)-1], uint32(i), Pointer(i+1)))
	}
	assert.ErrorIs(t, d.SplitAtPtr(d.Pointers[len(d.Pointers)-1], uint32(DirKeyCount), Pointer(DirKeyCount+1)), ErrFull)
}

func TestDirectorySplitPageDividesKeysAndExcludesSeparator(t *testing.T) {
	d := NewDirectory(0)
	for i := 0; i < 11; i++ {
		require.NoError(t, d.SplitAtPtr(d.Pointers[len(d.Pointers)-1], uint32(i), Pointer(i+1)))
	}
	originalKeyCount := len(d.Keys)
	originalPtrCount := len(d.Pointers)

	separator, right := d.SplitPage()

	assert.NotContains(t, d.Keys, separator)
	assert.NotContains(t, right.Keys, separator)
	// The separator is promoted to the parent, not stored in either half.
	assert.Equal(t, originalKeyCount, len(d.Keys)+len(right.Keys)+1)
	// No pointer is dropped: every child still belongs to exactly one half.
	assert.Equal(t, originalPtrCount, len(d.Pointers)+len(right.Pointers))
}

func TestDirectoryStealHighFromAndStealLowFrom(t *testing.T) {
	left := NewDirectory(0)
	require.NoError(t, left.SplitAtPtr(0, 10, 1))
	require.NoError(t, left.SplitAtPtr(1, 20, 2))

	right := NewDirectory(3)
	require.NoError(t, right.SplitAtPtr(3, 40, 4))

	newSep := right.StealHighFrom(left, 30)
	assert.Equal(t, uint32(20), newSep)
	assert.Equal(t, []uint32{10}, left.Keys)
	assert.Equal(t, []uint32{30, 40}, right.Keys)
	assert.Equal(t, Pointer(2), right.Pointers[0])

	left2 := NewDirectory(0)
	require.NoError(t, left2.SplitAtPtr(0, 10, 1))
	right2 := NewDirectory(2)
	require.NoError(t, right2.SplitAtPtr(2, 30, 3))
	require.NoError(t, right2.SplitAtPtr(3, 40, 4))

	newSep2 := left2.StealLowFrom(right2, 20)
	assert.Equal(t, uint32(30), newSep2)
	assert.Equal(t, []uint32{10, 20}, left2.Keys)
	assert.Equal(t, []uint32{40}, right2.Keys)
}

func TestDirectoryMergeWithAndDeleteIdx(t *testing.T) {
	left := NewDirectory(0)
	require.NoError(t, left.SplitAtPtr(0, 10, 1))
	right := NewDirectory(2)
	require.NoError(t, right.SplitAtPtr(2, 30, 3))

	left.MergeWith(right, 20)
	assert.Equal(t, []uint32{10, 20, 30}, left.Keys)
	assert.Equal(t, []Pointer{0, 1, 2, 3}, left.Pointers)

	left.DeleteIdx(1)
	assert.Equal(t, []uint32{20, 30}, left.Keys)
	assert.Equal(t, []Pointer{0, 2, 3}, left.Pointers)
}

func TestDirectoryFindPointerIdx(t *testing.T) {
	d := NewDirectory(0)
	require.NoError(t, d.SplitAtPtr(0, 10, 1))
	require.NoError(t, d.SplitAtPtr(1, 20, 2))

	assert.Equal(t, 0, d.FindPointerIdx(5))
	assert.Equal(t, 1, d.FindPointerIdx(10))
	assert.Equal(t, 2, d.FindPointerIdx(25))
}
