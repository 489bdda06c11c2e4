package page

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Page is implemented by every page variant. Each variant's expected tag is
// a package-level const (TypeMeta, TypeDirectory, TypeLeaf, TypeFree), not
// a method, since Go has no associated constants; Type is the runtime
// accessor mirroring the tag that was actually decoded from disk.
type Page interface {
	Type() Type
	encodeBody(buf *bytes.Buffer) error
	decodeBody(r *bytes.Reader) error
}

// Encode serializes p into exactly Size bytes: a one-byte type tag followed
// by the variant's body, zero-padded so the file stays byte-comparable
// across writes of the same logical content.
func Encode(p Page) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(Size)
	if err := buf.WriteByte(byte(p.Type())); err != nil {
		return nil, err
	}
	if err := p.encodeBody(buf); err != nil {
		return nil, fmt.Errorf("page: encode %s: %w", p.Type(), err)
	}
	if buf.Len() > Size {
		return nil, fmt.Errorf("page: encoded %s page is %d bytes, exceeds Size %d", p.Type(), buf.Len(), Size)
	}
	out := make([]byte, Size)
	copy(out, buf.Bytes())
	return out, nil
}

// Decode reads a Size-byte slice and returns the concrete page it holds,
// dispatching on the leading type tag.
func Decode(data []byte) (Page, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("page: decode: expected %d bytes, got %d", Size, len(data))
	}
	r := bytes.NewReader(data)
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	tag := Type(tagByte)

	var p Page
	switch tag {
	case TypeMeta:
		p = &Meta{}
	case TypeDirectory:
		p = &Directory{}
	case TypeLeaf:
		p = &Leaf{}
	case TypeFree:
		p = &Free{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, tagByte)
	}
	if err := p.decodeBody(r); err != nil {
		return nil, fmt.Errorf("page: decode %s: %w", tag, err)
	}
	return p, nil
}

// DecodeAs decodes data and requires the result to be of the given type,
// returning ErrTypeMismatch otherwise. This is the entry point the
// allocator (alloc.Allocator) uses for every typed read: a mismatch here is always fatal, per the
// error-handling design (corruption or a logic bug, never recoverable).
func DecodeAs(data []byte, want Type) (Page, error) {
	p, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if p.Type() != want {
		return nil, fmt.Errorf("%w: wanted %s, got %s", ErrTypeMismatch, want, p.Type())
	}
	return p, nil
}

func writeU16(buf *bytes.Buffer, v uint16) error { return binary.Write(buf, binary.BigEndian, v) }
func writeU32(buf *bytes.Buffer, v uint32) error { return binary.Write(buf, binary.BigEndian, v) }
func writeU64(buf *bytes.Buffer, v uint64) error { return binary.Write(buf, binary.BigEndian, v) }

func readU16(r *bytes.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}
func readU32(r *bytes.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}
func readU64(r *bytes.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}
