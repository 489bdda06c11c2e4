package page

import "bytes"

// Free is a free-list node: a page that has been released and is sitting on
// the singly-linked free chain rooted at Meta.NextFree. Everything else in
// the page's Size-byte slot is unspecified padding.
type Free struct {
	Next Pointer
}

func (f *Free) Type() Type { return TypeFree }

func (f *Free) encodeBody(buf *bytes.Buffer) error {
	return writeU64(buf, uint64(f.Next))
}

func (f *Free) decodeBody(r *bytes.Reader) error {
	v, err := readU64(r)
	if err != nil {
		return err
	}
	f.Next = Pointer(v)
	return nil
}
