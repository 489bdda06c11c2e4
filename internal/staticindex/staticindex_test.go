package staticindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRejectsUnsortedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.bin")
	err := Build(path, []Record{{Key: 5, Value: 1}, {Key: 3, Value: 2}})
	assert.ErrorIs(t, err, ErrNotSorted)
}

func TestBuildAndGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.bin")
	records := make([]Record, 0, 1000)
	for i := uint32(0); i < 1000; i++ {
		records = append(records, Record{Key: i * 2, Value: i * 2 * 10})
	}
	require.NoError(t, Build(path, records))

	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, len(records), ix.Len())

	v, ok := ix.Get(200)
	require.True(t, ok)
	assert.Equal(t, uint32(2000), v)

	// 201 falls between 200 and 202: ceiling lookup returns 202's value.
	v, ok = ix.Get(201)
	require.True(t, ok)
	assert.Equal(t, uint32(2020), v)

	// Below the first key returns the first record.
	v, ok = ix.Get(0)
	require.True(t, ok)
	assert.Equal(t, uint32(0), v)

	// Past the last key, nothing to ceiling to.
	_, ok = ix.Get(99999)
	assert.False(t, ok)
}

func TestOpenRejectsMisshapenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, Build(path, nil))

	// Append a partial trailing record.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path)
	assert.Error(t, err)
}
