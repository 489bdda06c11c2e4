package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripsEveryVariant(t *testing.T) {
	cases := []Page{
		NewMeta(1, 2),
		NewDirectory(7),
		NewLeaf(),
		&Free{Next: 42},
	}
	for _, p := range cases {
		buf, err := Encode(p)
		require.NoError(t, err)
		assert.Len(t, buf, Size)

		got, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, p.Type(), got.Type())
	}
}

func TestDecodeAsRejectsWrongType(t *testing.T) {
	buf, err := Encode(NewLeaf())
	require.NoError(t, err)

	_, err = DecodeAs(buf, TypeDirectory)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	got, err := DecodeAs(buf, TypeLeaf)
	require.NoError(t, err)
	assert.Equal(t, TypeLeaf, got.Type())
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	buf := make([]byte, Size)
	buf[0] = 0xFF
	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestLeafRoundTripPreservesRecordsAndChain(t *testing.T) {
	l := NewLeaf()
	l.Next = 10
	l.Prev = 20
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, l.Put(i*3, i*100))
	}

	buf, err := Encode(l)
	require.NoError(t, err)
	got, err := DecodeAs(buf, TypeLeaf)
	require.NoError(t, err)
	back := got.(*Leaf)

	assert.Equal(t, l.Records, back.Records)
	assert.Equal(t, l.Next, back.Next)
	assert.Equal(t, l.Prev, back.Prev)
}

func TestDirectoryRoundTripPreservesKeysAndPointers(t *testing.T) {
	d := NewDirectory(1)
	require.NoError(t, d.SplitAtPtr(1, 10, 2))
	require.NoError(t, d.SplitAtPtr(2, 20, 3))

	buf, err := Encode(d)
	require.NoError(t, err)
	got, err := DecodeAs(buf, TypeDirectory)
	require.NoError(t, err)
	back := got.(*Directory)

	assert.Equal(t, d.Keys, back.Keys)
	assert.Equal(t, d.Pointers, back.Pointers)
}
