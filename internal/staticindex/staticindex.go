// Package staticindex is the spec's second storage structure: a read-only,
// memory-mapped flat file of fixed-size (key, value) records held in
// ascending key order, looked up by binary search. It is independent of
// the B+Tree — no shared code, no shared invariants — the "external
// collaborator" sibling structure the distilled spec alludes to without
// specifying.
package staticindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/edsrzf/mmap-go"
)

// recordSize is the on-disk width of one (key uint32, value uint32) pair.
const recordSize = 8

// ErrNotSorted is returned by Build when the input records are not already
// in strictly ascending key order; this package never sorts on the
// caller's behalf, since the data files it reads are expected to already
// come out of gendata sorted.
var ErrNotSorted = errors.New("staticindex: records are not strictly ascending by key")

// Record is a single (key, value) pair.
type Record struct {
	Key   uint32
	Value uint32
}

// Build writes records, which must already be in strictly ascending key
// order, to path as a flat file of big-endian (key, value) pairs.
func Build(path string, records []Record) error {
	for i := 1; i < len(records); i++ {
		if records[i-1].Key >= records[i].Key {
			return fmt.Errorf("%w: at index %d", ErrNotSorted, i)
		}
	}

	buf := new(bytes.Buffer)
	buf.Grow(len(records) * recordSize)
	for _, r := range records {
		if err := binary.Write(buf, binary.BigEndian, r.Key); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, r.Value); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Index is a read-only view over a file built by Build, mapped into
// memory for zero-copy lookups.
type Index struct {
	file *os.File
	data mmap.MMap
}

// Open memory-maps path read-only.
func Open(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("staticindex: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("staticindex: stat: %w", err)
	}
	if info.Size()%recordSize != 0 {
		f.Close()
		return nil, fmt.Errorf("staticindex: %s: size %d is not a multiple of record size %d", path, info.Size(), recordSize)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("staticindex: mmap: %w", err)
	}
	return &Index{file: f, data: m}, nil
}

// Close unmaps the file and closes its handle.
func (ix *Index) Close() error {
	unmapErr := ix.data.Unmap()
	closeErr := ix.file.Close()
	if unmapErr != nil {
		return unmapErr
	}
	return closeErr
}

// Len reports the number of records in the index.
func (ix *Index) Len() int { return len(ix.data) / recordSize }

func (ix *Index) keyAt(i int) uint32 {
	return binary.BigEndian.Uint32(ix.data[i*recordSize:])
}

func (ix *Index) recordAt(i int) Record {
	off := i * recordSize
	return Record{
		Key:   binary.BigEndian.Uint32(ix.data[off:]),
		Value: binary.BigEndian.Uint32(ix.data[off+4:]),
	}
}

// Get performs a binary search for key. If key is present it returns the
// matching record's value. If key falls between two records it returns the
// value of the next record with a higher key, matching the data file's
// ceiling-lookup contract. It reports false only when key is past the last
// record in the file, or the file is empty.
func (ix *Index) Get(key uint32) (value uint32, found bool) {
	n := ix.Len()
	if n == 0 {
		return 0, false
	}
	if key <= ix.keyAt(0) {
		return ix.recordAt(0).Value, true
	}
	if key > ix.keyAt(n-1) {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return ix.keyAt(i) >= key })
	return ix.recordAt(i).Value, true
}
