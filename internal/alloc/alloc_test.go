package alloc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagetree/internal/page"
)

func TestInitWritesMetaRootAndFirstLeaf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	a, err := Init(path)
	require.NoError(t, err)
	defer a.Close()

	meta := a.Meta()
	assert.Equal(t, page.Pointer(1), meta.Root)
	assert.Equal(t, page.Pointer(2), meta.DataHead)
	assert.Equal(t, page.Pointer(2), meta.DataTail)
	assert.Equal(t, uint16(1), meta.Depth)

	root, err := a.GetDirectory(meta.Root)
	require.NoError(t, err)
	assert.Equal(t, []page.Pointer{2}, root.Pointers)

	leaf, err := a.GetLeaf(meta.DataHead)
	require.NoError(t, err)
	assert.Empty(t, leaf.Records)
}

func TestAllocReusesFreedPagesLIFO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	a, err := Init(path)
	require.NoError(t, err)
	defer a.Close()

	p1, err := a.Alloc(page.NewLeaf())
	require.NoError(t, err)
	p2, err := a.Alloc(page.NewLeaf())
	require.NoError(t, err)

	require.NoError(t, a.Free(p1))
	require.NoError(t, a.Free(p2))

	// LIFO: the most recently freed page (p2) comes back first.
	reused1, err := a.Alloc(page.NewLeaf())
	require.NoError(t, err)
	assert.Equal(t, p2, reused1)

	reused2, err := a.Alloc(page.NewLeaf())
	require.NoError(t, err)
	assert.Equal(t, p1, reused2)
}

func TestAllocExtendsFileWhenFreeListEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	a, err := Init(path)
	require.NoError(t, err)
	defer a.Close()

	before := a.Meta().PagesAllocated
	ptr, err := a.Alloc(page.NewLeaf())
	require.NoError(t, err)
	assert.Equal(t, page.Pointer(before), ptr)
	assert.Equal(t, before+1, a.Meta().PagesAllocated)
}

func TestPutDirectoryAndPutLeafRoundTripAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	a, err := Init(path)
	require.NoError(t, err)

	leaf, err := a.GetLeaf(a.Meta().DataHead)
	require.NoError(t, err)
	require.NoError(t, leaf.Put(7, 70))
	require.NoError(t, a.PutLeaf(a.Meta().DataHead, leaf))
	require.NoError(t, a.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetLeaf(reopened.Meta().DataHead)
	require.NoError(t, err)
	v, ok := got.FindValue(7)
	require.True(t, ok)
	assert.Equal(t, uint32(70), v)
}

func TestGetDirectoryRejectsLeafPointer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	a, err := Init(path)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.GetDirectory(a.Meta().DataHead)
	assert.ErrorIs(t, err, page.ErrTypeMismatch)
}

func TestOpenRejectsFileWithoutMetaPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	a, err := Init(path)
	require.NoError(t, err)
	leafPtr := a.Meta().DataHead
	require.NoError(t, a.Close())

	// Overwrite page 0 (the metadata page) with a leaf page's bytes.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	leafBuf := make([]byte, page.Size)
	_, err = f.ReadAt(leafBuf, int64(leafPtr)*page.Size)
	require.NoError(t, err)
	_, err = f.WriteAt(leafBuf, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path)
	assert.Error(t, err)
}
