// Package btree is the tree engine (spec component C7): it drives page
// descent, split propagation on insert, and borrow/merge propagation on
// delete, using a *btreecache.Cache as its sole page-access surface so it
// never has to know whether a given page is being served from memory or
// freshly read from disk.
package btree

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pagetree/internal/alloc"
	"pagetree/internal/btreecache"
	"pagetree/internal/page"
)

// defaultCacheCapacity bounds the LRU page cache sitting in front of the
// allocator. It is a performance knob only; correctness never depends on it.
const defaultCacheCapacity = 256

// ErrNotFound is an exported sentinel for an absent key. No Tree method
// returns it: Get reports absence as a boolean, matching the teacher's
// lookup style, and Delete of an absent key is a no-op.
var ErrNotFound = errors.New("btree: key not found")

// Tree is the on-disk B+Tree: fixed uint32 keys mapped to uint32 values,
// stored across the fixed-size pages described in the page package.
type Tree struct {
	cache *btreecache.Cache
}

// Init creates a brand new, empty tree at path.
func Init(path string) (*Tree, error) {
	a, err := alloc.Init(path)
	if err != nil {
		return nil, fmt.Errorf("btree: init: %w", err)
	}
	return &Tree{cache: btreecache.New(a, defaultCacheCapacity)}, nil
}

// Open opens an existing tree file.
func Open(path string) (*Tree, error) {
	a, err := alloc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("btree: open: %w", err)
	}
	return &Tree{cache: btreecache.New(a, defaultCacheCapacity)}, nil
}

// Close releases the underlying file handle.
func (t *Tree) Close() error { return t.cache.Close() }

// SetLogger attaches a structured logger to the tree's allocator, used to
// report page corruption before it surfaces as an error. The engine itself
// never logs; this only wires the allocator's corruption path.
func (t *Tree) SetLogger(logger *zap.Logger) { t.cache.SetLogger(logger) }

// Depth reports the current number of directory levels above the leaves.
func (t *Tree) Depth() uint16 { return t.cache.Meta().Depth }

// CacheStats exposes the page cache's hit/miss/eviction counters.
func (t *Tree) CacheStats() btreecache.Stats { return t.cache.Stats() }

// findPage descends from the root to the leaf that would hold key, and
// returns the pointer path taken: path[0] is the root directory, path[i]
// for 0 < i < depth is the directory descended into at level i, and
// path[len(path)-1] is the leaf.
func (t *Tree) findPage(key uint32) ([]page.Pointer, error) {
	meta := t.cache.Meta()
	path := make([]page.Pointer, 0, int(meta.Depth)+1)
	cur := meta.Root
	for i := uint16(0); i < meta.Depth; i++ {
		path = append(path, cur)
		dir, err := t.cache.GetDirectory(cur)
		if err != nil {
			return nil, fmt.Errorf("btree: descending to key %d: %w", key, err)
		}
		cur = dir.Pointers[dir.FindPointerIdx(key)]
	}
	path = append(path, cur)
	return path, nil
}

// Get looks up key and reports whether it was present.
func (t *Tree) Get(key uint32) (value uint32, found bool, err error) {
	path, err := t.findPage(key)
	if err != nil {
		return 0, false, err
	}
	leaf, err := t.cache.GetLeaf(path[len(path)-1])
	if err != nil {
		return 0, false, err
	}
	v, ok := leaf.FindValue(key)
	return v, ok, nil
}

// Put inserts key/value, or overwrites the value if key is already present,
// splitting leaf and directory pages up the tree as needed.
func (t *Tree) Put(key, value uint32) error {
	path, err := t.findPage(key)
	if err != nil {
		return err
	}
	leafPtr := path[len(path)-1]
	leaf, err := t.cache.GetLeaf(leafPtr)
	if err != nil {
		return err
	}

	if err := leaf.Put(key, value); err == nil {
		return t.cache.PutLeaf(leafPtr, leaf)
	} else if !errors.Is(err, page.ErrFull) {
		return err
	}

	return t.splitLeafAndInsert(path, leafPtr, leaf, key, value)
}

// splitLeafAndInsert is reached when leaf (at leafPtr, the last entry of
// path) is full. It splits leaf in two, repairs the leaf chain, inserts
// (key, value) into whichever half now covers it, and propagates the new
// child into the parent directory.
func (t *Tree) splitLeafAndInsert(path []page.Pointer, leafPtr page.Pointer, leaf *page.Leaf, key, value uint32) error {
	right := leaf.Split()
	right.Prev = leafPtr
	right.Next = leaf.Next
	rightPtr, err := t.cache.AllocLeaf(right)
	if err != nil {
		return fmt.Errorf("btree: allocating split leaf: %w", err)
	}

	if leaf.Next == page.Null {
		meta := t.cache.Meta()
		meta.DataTail = rightPtr
		if err := t.cache.PersistMeta(); err != nil {
			return err
		}
	} else {
		oldNext, err := t.cache.GetLeaf(leaf.Next)
		if err != nil {
			return err
		}
		oldNext.Prev = rightPtr
		if err := t.cache.PutLeaf(leaf.Next, oldNext); err != nil {
			return err
		}
	}
	leaf.Next = rightPtr

	splitKey := right.Records[0].Key
	if key < splitKey {
		if err := leaf.Put(key, value); err != nil {
			return fmt.Errorf("btree: inserting into split leaf: %w", err)
		}
	} else {
		if err := right.Put(key, value); err != nil {
			return fmt.Errorf("btree: inserting into split leaf: %w", err)
		}
		if err := t.cache.PutLeaf(rightPtr, right); err != nil {
			return err
		}
	}
	if err := t.cache.PutLeaf(leafPtr, leaf); err != nil {
		return err
	}

	return t.splitDirEntry(path, splitKey, rightPtr)
}

// splitDirEntry inserts (splitKey, newChildPtr) as the new sibling entry
// immediately after path[len-1] (the page that just split) in its parent,
// path[len-2]. If the parent has no room, it is split first via splitDir.
func (t *Tree) splitDirEntry(path []page.Pointer, splitKey uint32, newChildPtr page.Pointer) error {
	if len(path) < 2 {
		return fmt.Errorf("btree: splitDirEntry called with no parent in path")
	}
	parentPtr := path[len(path)-2]
	childPtr := path[len(path)-1]

	parent, err := t.cache.GetDirectory(parentPtr)
	if err != nil {
		return err
	}

	if !parent.IsFull() {
		if err := parent.SplitAtPtr(childPtr, splitKey, newChildPtr); err != nil {
			return fmt.Errorf("btree: inserting split entry into parent %d: %w", parentPtr, err)
		}
		return t.cache.PutDirectory(parentPtr, parent)
	}

	return t.splitDir(parent, parentPtr, path[:len(path)-1], splitKey, newChildPtr, childPtr)
}

// splitDir splits the full directory dir (at dirPtr, reached by ancestorPath)
// into two pages, installs a new root or recurses into the grandparent, and
// finally inserts (splitKey, newChildPtr) after childPtr into whichever half
// of dir now covers splitKey.
func (t *Tree) splitDir(dir *page.Directory, dirPtr page.Pointer, ancestorPath []page.Pointer, splitKey uint32, newChildPtr, childPtr page.Pointer) error {
	separator, right := dir.SplitPage()
	rightPtr, err := t.cache.AllocDirectory(right)
	if err != nil {
		return fmt.Errorf("btree: allocating split directory: %w", err)
	}
	if err := t.cache.PutDirectory(dirPtr, dir); err != nil {
		return err
	}

	if len(ancestorPath) == 1 {
		newRoot := page.NewDirectory(dirPtr)
		newRoot.Keys = []uint32{separator}
		newRoot.Pointers = append(newRoot.Pointers, rightPtr)
		newRootPtr, err := t.cache.AllocDirectory(newRoot)
		if err != nil {
			return fmt.Errorf("btree: allocating new root: %w", err)
		}
		meta := t.cache.Meta()
		meta.Root = newRootPtr
		meta.Depth++
		if err := t.cache.PersistMeta(); err != nil {
			return err
		}
	} else if err := t.splitDirEntry(ancestorPath, separator, rightPtr); err != nil {
		return err
	}

	// splitKey, not childPtr, decides which half now owns the new entry:
	// the split partitioned pointers structurally, so childPtr is still
	// wherever it landed, and that side is the one whose key range covers
	// splitKey.
	if splitKey < separator {
		if err := dir.SplitAtPtr(childPtr, splitKey, newChildPtr); err != nil {
			return fmt.Errorf("btree: inserting split entry into left half of %d: %w", dirPtr, err)
		}
		return t.cache.PutDirectory(dirPtr, dir)
	}
	if err := right.SplitAtPtr(childPtr, splitKey, newChildPtr); err != nil {
		return fmt.Errorf("btree: inserting split entry into right half of %d: %w", dirPtr, err)
	}
	return t.cache.PutDirectory(rightPtr, right)
}

// Delete removes key if present. Deleting an absent key is a no-op, not an
// error.
func (t *Tree) Delete(key uint32) error {
	path, err := t.findPage(key)
	if err != nil {
		return err
	}
	leafPtr := path[len(path)-1]
	leaf, err := t.cache.GetLeaf(leafPtr)
	if err != nil {
		return err
	}
	if !leaf.Delete(key) {
		return nil
	}
	if !leaf.IsUnderfull() {
		return t.cache.PutLeaf(leafPtr, leaf)
	}
	if len(path) < 2 {
		// The leaf is also the root (depth 0 never occurs in practice, but
		// guard it rather than index out of range below).
		return t.cache.PutLeaf(leafPtr, leaf)
	}

	parentPtr := path[len(path)-2]
	parent, err := t.cache.GetDirectory(parentPtr)
	if err != nil {
		return err
	}
	dirIdx := parent.FindPointerIdx(key)

	// Consult only one neighbor: the left sibling when one exists, else the
	// right sibling, else (no sibling at all) give up and just flush. This
	// mirrors the teacher's reference delete path exactly: it never tries
	// both siblings for a borrow before settling on which one to merge with.
	var mergeNeighborPtr page.Pointer
	var mergeNeighbor *page.Leaf
	var mergeWithLeft bool

	if dirIdx > 0 {
		leftPtr := parent.Pointers[dirIdx-1]
		left, err := t.cache.GetLeaf(leftPtr)
		if err != nil {
			return err
		}
		if left.CanAllowStolenKey() {
			rec := left.StealHigh()
			if err := leaf.Put(rec.Key, rec.Value); err != nil {
				return err
			}
			parent.Keys[dirIdx-1] = rec.Key
			if err := t.cache.PutLeaf(leftPtr, left); err != nil {
				return err
			}
			if err := t.cache.PutLeaf(leafPtr, leaf); err != nil {
				return err
			}
			return t.cache.PutDirectory(parentPtr, parent)
		}
		mergeNeighborPtr, mergeNeighbor, mergeWithLeft = leftPtr, left, true
	} else if dirIdx < len(parent.Keys) {
		rightPtr := parent.Pointers[dirIdx+1]
		right, err := t.cache.GetLeaf(rightPtr)
		if err != nil {
			return err
		}
		if right.CanAllowStolenKey() {
			rec := right.StealLow()
			if err := leaf.Put(rec.Key, rec.Value); err != nil {
				return err
			}
			if len(right.Records) > 0 {
				parent.Keys[dirIdx] = right.Records[0].Key
			}
			if err := t.cache.PutLeaf(rightPtr, right); err != nil {
				return err
			}
			if err := t.cache.PutLeaf(leafPtr, leaf); err != nil {
				return err
			}
			return t.cache.PutDirectory(parentPtr, parent)
		}
		mergeNeighborPtr, mergeNeighbor, mergeWithLeft = rightPtr, right, false
	} else {
		// Parent has exactly one child pointer and no keys: this leaf has
		// no sibling to borrow from or merge with. Underfull is tolerated
		// in this degenerate single-leaf state.
		return t.cache.PutLeaf(leafPtr, leaf)
	}

	// Theft failed; merge with whichever neighbor was already consulted.
	if mergeWithLeft {
		left := mergeNeighbor
		left.MergeWith(leaf)
		left.Next = leaf.Next
		if leaf.Next == page.Null {
			meta := t.cache.Meta()
			meta.DataTail = mergeNeighborPtr
			if err := t.cache.PersistMeta(); err != nil {
				return err
			}
		} else {
			nextLeaf, err := t.cache.GetLeaf(leaf.Next)
			if err != nil {
				return err
			}
			nextLeaf.Prev = mergeNeighborPtr
			if err := t.cache.PutLeaf(leaf.Next, nextLeaf); err != nil {
				return err
			}
		}
		if err := t.cache.PutLeaf(mergeNeighborPtr, left); err != nil {
			return err
		}
		if err := t.cache.Free(leafPtr); err != nil {
			return err
		}
		parent.DeleteIdx(dirIdx)
	} else {
		right := mergeNeighbor
		leaf.MergeWith(right)
		leaf.Next = right.Next
		if right.Next == page.Null {
			meta := t.cache.Meta()
			meta.DataTail = leafPtr
			if err := t.cache.PersistMeta(); err != nil {
				return err
			}
		} else {
			nextLeaf, err := t.cache.GetLeaf(right.Next)
			if err != nil {
				return err
			}
			nextLeaf.Prev = leafPtr
			if err := t.cache.PutLeaf(right.Next, nextLeaf); err != nil {
				return err
			}
		}
		if err := t.cache.PutLeaf(leafPtr, leaf); err != nil {
			return err
		}
		if err := t.cache.Free(mergeNeighborPtr); err != nil {
			return err
		}
		parent.DeleteIdx(dirIdx + 1)
	}
	if err := t.cache.PutDirectory(parentPtr, parent); err != nil {
		return err
	}

	if parent.IsUnderfull() {
		return t.mergeDirPage(path[:len(path)-1])
	}
	return nil
}

// mergeDirPage rebalances the directory at path[len(path)-1], which has
// just dropped below minimum occupancy: borrow from a sibling if one can
// lend, else merge with a sibling and recurse into the grandparent. When
// path has length 1, the directory is the root, which is handled by
// collapseRoot instead of the ordinary borrow/merge rules.
func (t *Tree) mergeDirPage(path []page.Pointer) error {
	ptr := path[len(path)-1]
	dir, err := t.cache.GetDirectory(ptr)
	if err != nil {
		return err
	}

	if len(path) == 1 {
		return t.collapseRoot(ptr, dir)
	}

	parentPtr := path[len(path)-2]
	parent, err := t.cache.GetDirectory(parentPtr)
	if err != nil {
		return err
	}

	idx := -1
	for i, p := range parent.Pointers {
		if p == ptr {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("btree: directory %d not found among parent %d's children", ptr, parentPtr)
	}

	// As in Delete, consult only one sibling: left when one exists, else
	// right. A non-root directory always has at least one, by the minimum-
	// occupancy invariant.
	var siblingPtr page.Pointer
	var sibling *page.Directory
	var siblingIsLeft bool

	if idx > 0 {
		leftPtr := parent.Pointers[idx-1]
		left, err := t.cache.GetDirectory(leftPtr)
		if err != nil {
			return err
		}
		if left.CanAllowStolenKey() {
			newSep := dir.StealHighFrom(left, parent.Keys[idx-1])
			parent.Keys[idx-1] = newSep
			if err := t.cache.PutDirectory(leftPtr, left); err != nil {
				return err
			}
			if err := t.cache.PutDirectory(ptr, dir); err != nil {
				return err
			}
			return t.cache.PutDirectory(parentPtr, parent)
		}
		siblingPtr, sibling, siblingIsLeft = leftPtr, left, true
	} else {
		rightPtr := parent.Pointers[idx+1]
		right, err := t.cache.GetDirectory(rightPtr)
		if err != nil {
			return err
		}
		if right.CanAllowStolenKey() {
			newSep := dir.StealLowFrom(right, parent.Keys[idx])
			parent.Keys[idx] = newSep
			if err := t.cache.PutDirectory(rightPtr, right); err != nil {
				return err
			}
			if err := t.cache.PutDirectory(ptr, dir); err != nil {
				return err
			}
			return t.cache.PutDirectory(parentPtr, parent)
		}
		siblingPtr, sibling, siblingIsLeft = rightPtr, right, false
	}

	// Theft failed; merge with the sibling already consulted.
	if siblingIsLeft {
		left := sibling
		left.MergeWith(dir, parent.Keys[idx-1])
		if err := t.cache.PutDirectory(siblingPtr, left); err != nil {
			return err
		}
		if err := t.cache.Free(ptr); err != nil {
			return err
		}
		parent.DeleteIdx(idx)
	} else {
		right := sibling
		dir.MergeWith(right, parent.Keys[idx])
		if err := t.cache.PutDirectory(ptr, dir); err != nil {
			return err
		}
		if err := t.cache.Free(siblingPtr); err != nil {
			return err
		}
		parent.DeleteIdx(idx + 1)
	}
	if err := t.cache.PutDirectory(parentPtr, parent); err != nil {
		return err
	}

	if parent.IsUnderfull() {
		return t.mergeDirPage(path[:len(path)-1])
	}
	return nil
}

// collapseRoot handles the asymmetric root case: a root directory is never
// merged or borrowed for, and is only ever collapsed (removing one level of
// depth) when it has dropped to exactly one child pointer and zero keys,
// and only once depth is greater than 1 — a depth-1 root is a directory
// pointing straight at a single leaf and is left in place even when empty.
func (t *Tree) collapseRoot(ptr page.Pointer, dir *page.Directory) error {
	meta := t.cache.Meta()
	if len(dir.Keys) >= 1 {
		return t.cache.PutDirectory(ptr, dir)
	}
	if meta.Depth <= 1 {
		return t.cache.PutDirectory(ptr, dir)
	}
	newRoot := dir.Pointers[0]
	if err := t.cache.Free(ptr); err != nil {
		return err
	}
	meta.Root = newRoot
	meta.Depth--
	return t.cache.PersistMeta()
}
