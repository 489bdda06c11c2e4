package btree

import "pagetree/internal/page"

// Iterator walks every (key, value) pair in ascending key order by
// following the leaf chain threaded through Meta.DataHead/DataTail, rather
// than re-descending the tree for each key.
type Iterator struct {
	cache interface {
		GetLeaf(page.Pointer) (*page.Leaf, error)
	}
	leaf *page.Leaf
	idx  int
	err  error
}

// Iterate returns an Iterator positioned before the first record.
func (t *Tree) Iterate() (*Iterator, error) {
	meta := t.cache.Meta()
	it := &Iterator{cache: t.cache, idx: -1}
	if meta.DataHead == page.Null {
		return it, nil
	}
	leaf, err := t.cache.GetLeaf(meta.DataHead)
	if err != nil {
		return nil, err
	}
	it.leaf = leaf
	return it, nil
}

// Next advances the iterator and reports whether a record is available.
func (it *Iterator) Next() bool {
	if it.err != nil || it.leaf == nil {
		return false
	}
	it.idx++
	for it.idx >= len(it.leaf.Records) {
		if it.leaf.Next == page.Null {
			it.leaf = nil
			return false
		}
		next, err := it.cache.GetLeaf(it.leaf.Next)
		if err != nil {
			it.err = err
			it.leaf = nil
			return false
		}
		it.leaf = next
		it.idx = 0
	}
	return true
}

// Record returns the (key, value) pair at the iterator's current position.
// Valid only after a call to Next that returned true.
func (it *Iterator) Record() page.Record { return it.leaf.Records[it.idx] }

// Err returns the first error encountered while walking the leaf chain.
func (it *Iterator) Err() error { return it.err }
