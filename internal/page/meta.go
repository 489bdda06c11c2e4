package page

import "bytes"

// Meta is the singleton header page at Pointer 0. It is mutated after every
// allocation, free, root change, depth change, and leaf-chain endpoint
// change, and is the only page whose write must be flushed before a caller
// can rely on any other page being reachable.
type Meta struct {
	NextFree        Pointer // head of the free-list, Null if empty
	Root            Pointer // root directory page
	DataHead        Pointer // first leaf in key order
	DataTail        Pointer // last leaf in key order
	PagesAllocated  uint64  // total pages the file contains, including freed ones
	Depth           uint16  // directory levels above the leaves; minimum 1
}

func (m *Meta) Type() Type { return TypeMeta }

func (m *Meta) encodeBody(buf *bytes.Buffer) error {
	for _, v := range []uint64{uint64(m.NextFree), uint64(m.Root), uint64(m.DataHead), uint64(m.DataTail), m.PagesAllocated} {
		if err := writeU64(buf, v); err != nil {
			return err
		}
	}
	return writeU16(buf, m.Depth)
}

func (m *Meta) decodeBody(r *bytes.Reader) error {
	fields := []*Pointer{&m.NextFree, &m.Root, &m.DataHead, &m.DataTail}
	for _, f := range fields {
		v, err := readU64(r)
		if err != nil {
			return err
		}
		*f = Pointer(v)
	}
	v, err := readU64(r)
	if err != nil {
		return err
	}
	m.PagesAllocated = v
	d, err := readU16(r)
	if err != nil {
		return err
	}
	m.Depth = d
	return nil
}

// NewMeta builds the metadata page written by Init: an empty tree with a
// single directory root pointing at a single empty leaf.
func NewMeta(root, leaf Pointer) *Meta {
	return &Meta{
		NextFree:       Null,
		Root:           root,
		DataHead:       leaf,
		DataTail:       leaf,
		PagesAllocated: uint64(leaf) + 1,
		Depth:          1,
	}
}
