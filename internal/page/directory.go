package page

import (
	"bytes"
	"fmt"
	"sort"
)

// Directory is an interior B+Tree node: count keys and count+1 child
// pointers, where Pointers[i] roots the subtree whose keys k satisfy
// Keys[i-1] <= k < Keys[i] (open bounds at i=0 and i=count).
type Directory struct {
	Keys     []uint32
	Pointers []Pointer
}

// NewDirectory returns an empty directory page with a single child pointer
// and no keys — the shape of a freshly allocated root or, transiently, a
// page under construction before its first SplitAtPtr.
func NewDirectory(firstChild Pointer) *Directory {
	return &Directory{Pointers: []Pointer{firstChild}}
}

func (d *Directory) Type() Type { return TypeDirectory }

func (d *Directory) encodeBody(buf *bytes.Buffer) error {
	if err := writeU16(buf, uint16(len(d.Keys))); err != nil {
		return err
	}
	for _, k := range d.Keys {
		if err := writeU32(buf, k); err != nil {
			return err
		}
	}
	for _, p := range d.Pointers {
		if err := writeU64(buf, uint64(p)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) decodeBody(r *bytes.Reader) error {
	count, err := readU16(r)
	if err != nil {
		return err
	}
	d.Keys = make([]uint32, count)
	for i := range d.Keys {
		v, err := readU32(r)
		if err != nil {
			return err
		}
		d.Keys[i] = v
	}
	d.Pointers = make([]Pointer, int(count)+1)
	for i := range d.Pointers {
		v, err := readU64(r)
		if err != nil {
			return err
		}
		d.Pointers[i] = Pointer(v)
	}
	return nil
}

// FindPointerIdx returns the child index to descend into for key: the
// smallest i such that key < Keys[i], or len(Keys) if no such i exists.
func (d *Directory) FindPointerIdx(key uint32) int {
	return sort.Search(len(d.Keys), func(i int) bool { return key < d.Keys[i] })
}

// IsFull reports whether the page has no room for one more key.
func (d *Directory) IsFull() bool { return len(d.Keys) >= DirKeyCount }

// IsUnderfull reports whether the page is below minimum non-root occupancy.
func (d *Directory) IsUnderfull() bool { return len(d.Keys) < DirKeyCount/2-1 }

// CanAllowStolenKey reports whether a borrow from this page would still
// leave it at or above minimum occupancy.
func (d *Directory) CanAllowStolenKey() bool { return len(d.Keys) > DirKeyCount/2 }

// SplitAtPtr locates the existing child oldPtr, and inserts splitKey /
// newPtr immediately after it: keys[i:] shift right by one, pointers[i+1:]
// shift right by one, keys[i] = splitKey, pointers[i+1] = newPtr.
func (d *Directory) SplitAtPtr(oldPtr Pointer, splitKey uint32, newPtr Pointer) error {
	if d.IsFull() {
		return ErrFull
	}
	i := -1
	for idx, p := range d.Pointers {
		if p == oldPtr {
			i = idx
			break
		}
	}
	if i == -1 {
		return fmt.Errorf("page: directory: child pointer %d not found", oldPtr)
	}

	d.Keys = append(d.Keys, 0)
	copy(d.Keys[i+1:], d.Keys[i:len(d.Keys)-1])
	d.Keys[i] = splitKey

	d.Pointers = append(d.Pointers, Null)
	copy(d.Pointers[i+2:], d.Pointers[i+1:len(d.Pointers)-1])
	d.Pointers[i+1] = newPtr
	return nil
}

// SplitPage divides a full directory page in two: the new page receives the
// upper half of keys/pointers, this page retains the lower half, and the
// key at the midpoint is returned as the separator that the caller must
// propagate to the parent (it is stored in neither child page).
func (d *Directory) SplitPage() (separator uint32, right *Directory) {
	m := len(d.Keys) / 2
	separator = d.Keys[m]

	right = &Directory{
		Keys:     append([]uint32(nil), d.Keys[m+1:]...),
		Pointers: append([]Pointer(nil), d.Pointers[m+1:]...),
	}
	d.Keys = d.Keys[:m:m]
	d.Pointers = d.Pointers[:m+1 : m+1]
	return separator, right
}

// DeleteIdx removes the child pointer at index i (i must be > 0) and the
// key that separates it from its left sibling, keys[i-1].
func (d *Directory) DeleteIdx(i int) {
	copy(d.Keys[i-1:], d.Keys[i:])
	d.Keys = d.Keys[:len(d.Keys)-1]
	copy(d.Pointers[i:], d.Pointers[i+1:])
	d.Pointers = d.Pointers[:len(d.Pointers)-1]
}

// StealHighFrom borrows the rightmost entry of the left sibling into this
// (the right) page, using parentKey as the new keys[0], and returns the
// value the parent's separator should become.
func (d *Directory) StealHighFrom(left *Directory, parentKey uint32) uint32 {
	d.Keys = append(d.Keys, 0)
	copy(d.Keys[1:], d.Keys[:len(d.Keys)-1])
	d.Keys[0] = parentKey

	d.Pointers = append(d.Pointers, Null)
	copy(d.Pointers[1:], d.Pointers[:len(d.Pointers)-1])
	d.Pointers[0] = left.Pointers[len(left.Pointers)-1]

	// left.Keys' old last entry was the boundary between left's last two
	// pointers; now that the last pointer has moved to d, that old key
	// becomes the new parent separator.
	newSeparator := left.Keys[len(left.Keys)-1]
	left.Pointers = left.Pointers[:len(left.Pointers)-1]
	left.Keys = left.Keys[:len(left.Keys)-1]
	return newSeparator
}

// StealLowFrom borrows the leftmost entry of the right sibling into this
// (the left) page, using parentKey as the new last key, and returns the
// value the parent's separator should become.
func (d *Directory) StealLowFrom(right *Directory, parentKey uint32) uint32 {
	d.Keys = append(d.Keys, parentKey)
	d.Pointers = append(d.Pointers, right.Pointers[0])

	newSeparator := right.Keys[0]
	copy(right.Keys, right.Keys[1:])
	right.Keys = right.Keys[:len(right.Keys)-1]
	copy(right.Pointers, right.Pointers[1:])
	right.Pointers = right.Pointers[:len(right.Pointers)-1]
	return newSeparator
}

// MergeWith appends parentKey and then all of right's keys/pointers onto
// this (the left) page. Caller frees right afterward.
func (d *Directory) MergeWith(right *Directory, parentKey uint32) {
	d.Keys = append(d.Keys, parentKey)
	d.Keys = append(d.Keys, right.Keys...)
	d.Pointers = append(d.Pointers, right.Pointers...)
}
