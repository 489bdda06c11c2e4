package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeafPutOverwritesExistingKey(t *testing.T) {
	l := NewLeaf()
	require.NoError(t, l.Put(5, 100))
	require.NoError(t, l.Put(5, 200))

	v, ok := l.FindValue(5)
	require.True(t, ok)
	assert.Equal(t, uint32(200), v)
	assert.Len(t, l.Records, 1)
}

func TestLeafPutKeepsRecordsSorted(t *testing.T) {
	l := NewLeaf()
	for _, k := range []uint32{5, 1, 9, 3, 7} {
		require.NoError(t, l.Put(k, k))
	}
	for i := 1; i < len(l.Records); i++ {
		assert.Less(t, l.Records[i-1].Key, l.Records[i].Key)
	}
}

func TestLeafPutReturnsErrFullForNewKeyOnFullLeaf(t *testing.T) {
	l := NewLeaf()
	for i := uint32(0); i < LeafRecordCount; i++ {
		require.NoError(t, l.Put(i, i))
	}
	assert.ErrorIs(t, l.Put(uint32(LeafRecordCount), 1), ErrFull)
	// Overwriting an existing key must still succeed even when full.
	assert.NoError(t, l.Put(0, 999))
}

func TestLeafSplitDividesRecordsInHalf(t *testing.T) {
	l := NewLeaf()
	for i := uint32(0); i < 100; i++ {
		require.NoError(t, l.Put(i, i))
	}
	right := l.Split()

	assert.Equal(t, 50, len(l.Records))
	assert.Equal(t, 50, len(right.Records))
	assert.Equal(t, uint32(49), l.Records[len(l.Records)-1].Key)
	assert.Equal(t, uint32(50), right.Records[0].Key)
}

func TestLeafStealHighAndLow(t *testing.T) {
	l := NewLeaf()
	for i := uint32(0); i < 10; i++ {
		require.NoError(t, l.Put(i, i))
	}
	high := l.StealHigh()
	assert.Equal(t, uint32(9), high.Key)
	assert.Len(t, l.Records, 9)

	low := l.StealLow()
	assert.Equal(t, uint32(0), low.Key)
	assert.Len(t, l.Records, 8)
}

func TestLeafMergeWithAppendsInOrder(t *testing.T) {
	left := NewLeaf()
	require.NoError(t, left.Put(1, 1))
	require.NoError(t, left.Put(2, 2))
	right := NewLeaf()
	require.NoError(t, right.Put(3, 3))
	require.NoError(t, right.Put(4, 4))

	left.MergeWith(right)
	assert.Equal(t, []Record{{1, 1}, {2, 2}, {3, 3}, {4, 4}}, left.Records)
}

func TestLeafDeleteReportsPresence(t *testing.T) {
	l := NewLeaf()
	require.NoError(t, l.Put(1, 1))
	assert.True(t, l.Delete(1))
	assert.False(t, l.Delete(1))
}
