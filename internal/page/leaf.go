package page

import (
	"bytes"
	"sort"
)

// Record is a single (key, value) pair stored in a leaf.
type Record struct {
	Key   uint32
	Value uint32
}

// Leaf holds a sorted run of (key, value) pairs plus the prev/next pointers
// that thread every leaf in the file into one ascending chain, independent
// of tree depth.
type Leaf struct {
	Records []Record
	Next    Pointer
	Prev    Pointer
}

// NewLeaf returns an empty leaf with no chain links set.
func NewLeaf() *Leaf {
	return &Leaf{Records: make([]Record, 0, LeafRecordCount)}
}

func (l *Leaf) Type() Type { return TypeLeaf }

func (l *Leaf) encodeBody(buf *bytes.Buffer) error {
	if err := writeU16(buf, uint16(len(l.Records))); err != nil {
		return err
	}
	for _, rec := range l.Records {
		if err := writeU32(buf, rec.Key); err != nil {
			return err
		}
		if err := writeU32(buf, rec.Value); err != nil {
			return err
		}
	}
	if err := writeU64(buf, uint64(l.Next)); err != nil {
		return err
	}
	return writeU64(buf, uint64(l.Prev))
}

func (l *Leaf) decodeBody(r *bytes.Reader) error {
	count, err := readU16(r)
	if err != nil {
		return err
	}
	l.Records = make([]Record, 0, count)
	for i := uint16(0); i < count; i++ {
		k, err := readU32(r)
		if err != nil {
			return err
		}
		v, err := readU32(r)
		if err != nil {
			return err
		}
		l.Records = append(l.Records, Record{Key: k, Value: v})
	}
	next, err := readU64(r)
	if err != nil {
		return err
	}
	prev, err := readU64(r)
	if err != nil {
		return err
	}
	l.Next = Pointer(next)
	l.Prev = Pointer(prev)
	return nil
}

// FindIndex returns the index of key if present, and whether it was found.
// When not found the index is the position key would need to be inserted
// at to keep Records ascending.
func (l *Leaf) FindIndex(key uint32) (idx int, found bool) {
	i := sort.Search(len(l.Records), func(i int) bool { return l.Records[i].Key >= key })
	if i < len(l.Records) && l.Records[i].Key == key {
		return i, true
	}
	return i, false
}

// FindValue looks up key and reports whether it was present.
func (l *Leaf) FindValue(key uint32) (value uint32, found bool) {
	i, ok := l.FindIndex(key)
	if !ok {
		return 0, false
	}
	return l.Records[i].Value, true
}

// Put inserts or overwrites (key, value). Updates to an existing key never
// fail; inserting a brand new key into a full leaf returns ErrFull.
func (l *Leaf) Put(key, value uint32) error {
	i, found := l.FindIndex(key)
	if found {
		l.Records[i].Value = value
		return nil
	}
	if len(l.Records) >= LeafRecordCount {
		return ErrFull
	}
	l.Records = append(l.Records, Record{})
	copy(l.Records[i+1:], l.Records[i:])
	l.Records[i] = Record{Key: key, Value: value}
	return nil
}

// Delete removes key if present and reports whether anything was removed.
func (l *Leaf) Delete(key uint32) bool {
	i, found := l.FindIndex(key)
	if !found {
		return false
	}
	l.Records = append(l.Records[:i], l.Records[i+1:]...)
	return true
}

// Split moves the upper half of Records into a fresh leaf and returns it.
// Chain pointers (Next/Prev) are the caller's responsibility to fix up.
func (l *Leaf) Split() *Leaf {
	mid := len(l.Records) / 2
	right := NewLeaf()
	right.Records = append(right.Records, l.Records[mid:]...)
	l.Records = l.Records[:mid:mid]
	return right
}

// CanAllowStolenKey reports whether this leaf has enough records to lend one
// to a sibling and remain at or above the minimum occupancy.
func (l *Leaf) CanAllowStolenKey() bool {
	return len(l.Records) > LeafRecordCount/2
}

// StealHigh pops and returns this leaf's last record; precondition:
// CanAllowStolenKey().
func (l *Leaf) StealHigh() Record {
	last := l.Records[len(l.Records)-1]
	l.Records = l.Records[:len(l.Records)-1]
	return last
}

// StealLow pops and returns this leaf's first record; precondition:
// CanAllowStolenKey().
func (l *Leaf) StealLow() Record {
	first := l.Records[0]
	l.Records = l.Records[1:]
	return first
}

// MergeWith appends other's records to this leaf. This leaf must hold the
// lesser keys; chain repair and freeing other is the caller's job.
func (l *Leaf) MergeWith(other *Leaf) {
	l.Records = append(l.Records, other.Records...)
}

// IsUnderfull reports whether the leaf is below the minimum occupancy that
// applies once the tree has more than one level (a depth-1 root leaf is
// exempt).
func (l *Leaf) IsUnderfull() bool {
	return len(l.Records) < LeafRecordCount/2
}
