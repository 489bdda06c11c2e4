// Package alloc is the page allocator (spec component C6): it owns the
// backing file, persists the metadata page after every mutation, and hands
// the tree engine a free-list-backed Alloc/Free/Get/Put interface so the
// engine never has to think about where a page physically lives.
package alloc

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"pagetree/internal/page"
)

// Allocator is the single owner of the backing file. It is not safe for
// concurrent use — the spec's single-writer, single-reader non-goal means
// every call here is expected to run to completion before the next begins.
type Allocator struct {
	file   *os.File
	meta   *page.Meta
	logger *zap.Logger
}

// SetLogger attaches a structured logger used to report page corruption
// before it is surfaced as an error. A nil logger (the default) disables
// this reporting silently.
func (a *Allocator) SetLogger(logger *zap.Logger) { a.logger = logger }

func (a *Allocator) warn(msg string, fields ...zap.Field) {
	if a.logger != nil {
		a.logger.Warn(msg, fields...)
	}
}

// Init creates (truncating if it already exists) the file at path and
// writes the initial three pages: a metadata page, an empty root directory
// with one child pointer, and an empty leaf.
func Init(path string) (*Allocator, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("alloc: init: %w", err)
	}

	a := &Allocator{file: f}

	const (
		rootPtr = page.Pointer(1)
		leafPtr = page.Pointer(2)
	)

	if err := a.writeRaw(rootPtr, page.NewDirectory(leafPtr)); err != nil {
		f.Close()
		return nil, err
	}
	if err := a.writeRaw(leafPtr, page.NewLeaf()); err != nil {
		f.Close()
		return nil, err
	}
	a.meta = page.NewMeta(rootPtr, leafPtr)
	if err := a.writeRaw(page.MetaPointer, a.meta); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// Open opens an existing file and loads its metadata page.
func Open(path string) (*Allocator, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("alloc: open: %w", err)
	}
	a := &Allocator{file: f}
	p, err := a.readRaw(page.MetaPointer)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("alloc: open: reading metadata page: %w", err)
	}
	meta, ok := p.(*page.Meta)
	if !ok {
		a.warn("corrupt database file: page 0 is not a metadata page", zap.String("path", path), zap.String("decoded_type", p.Type().String()))
		f.Close()
		return nil, fmt.Errorf("alloc: open: %w: page 0 is not metadata", page.ErrTypeMismatch)
	}
	a.meta = meta
	return a, nil
}

// Close flushes nothing beyond what has already been written-through (every
// mutation here is synchronous) and closes the file handle.
func (a *Allocator) Close() error {
	return a.file.Close()
}

// Meta returns the in-memory metadata page. Callers must not retain it
// across a mutating allocator call without re-reading; Alloc/Free mutate it
// in place and persist it immediately.
func (a *Allocator) Meta() *page.Meta { return a.meta }

// persistMeta writes the current in-memory metadata page back to page 0.
func (a *Allocator) persistMeta() error {
	return a.writeRaw(page.MetaPointer, a.meta)
}

// Alloc writes p to a newly allocated page: the popped head of the
// free-list if one exists, otherwise a fresh slot at the end of the file.
// Metadata is persisted before Alloc returns.
func (a *Allocator) Alloc(p page.Page) (page.Pointer, error) {
	var ptr page.Pointer
	if a.meta.NextFree == page.Null {
		ptr = page.Pointer(a.meta.PagesAllocated)
		a.meta.PagesAllocated++
	} else {
		ptr = a.meta.NextFree
		freed, err := a.readRaw(ptr)
		if err != nil {
			return 0, fmt.Errorf("alloc: reading free-list head %d: %w", ptr, err)
		}
		fp, ok := freed.(*page.Free)
		if !ok {
			return 0, fmt.Errorf("alloc: %w: free-list head %d is not a free page", page.ErrTypeMismatch, ptr)
		}
		a.meta.NextFree = fp.Next
	}

	if err := a.writeRaw(ptr, p); err != nil {
		return 0, err
	}
	if err := a.persistMeta(); err != nil {
		return 0, err
	}
	return ptr, nil
}

// Free pushes ptr onto the head of the free-list and persists metadata.
// The page's previous content is overwritten with a free-page record; it is
// the caller's responsibility to never dereference ptr again.
func (a *Allocator) Free(ptr page.Pointer) error {
	fp := &page.Free{Next: a.meta.NextFree}
	if err := a.writeRaw(ptr, fp); err != nil {
		return err
	}
	a.meta.NextFree = ptr
	return a.persistMeta()
}

// GetDirectory reads and type-checks a directory page.
func (a *Allocator) GetDirectory(ptr page.Pointer) (*page.Directory, error) {
	p, err := a.readTyped(ptr, page.TypeDirectory)
	if err != nil {
		return nil, err
	}
	return p.(*page.Directory), nil
}

// GetLeaf reads and type-checks a leaf page.
func (a *Allocator) GetLeaf(ptr page.Pointer) (*page.Leaf, error) {
	p, err := a.readTyped(ptr, page.TypeLeaf)
	if err != nil {
		return nil, err
	}
	return p.(*page.Leaf), nil
}

// PutDirectory writes a directory page in place (no allocation, no metadata
// change).
func (a *Allocator) PutDirectory(ptr page.Pointer, d *page.Directory) error {
	return a.writeRaw(ptr, d)
}

// PutLeaf writes a leaf page in place (no allocation, no metadata change).
func (a *Allocator) PutLeaf(ptr page.Pointer, l *page.Leaf) error {
	return a.writeRaw(ptr, l)
}

// PersistMeta exposes metadata persistence to callers (the tree engine)
// that mutate Meta() fields directly, e.g. root/depth changes on split, or
// data_head/data_tail changes on leaf-chain repair.
func (a *Allocator) PersistMeta() error {
	return a.persistMeta()
}

// readTyped reads ptr and requires the decoded page to be of type want,
// warning and returning ErrTypeMismatch otherwise.
func (a *Allocator) readTyped(ptr page.Pointer, want page.Type) (page.Page, error) {
	buf := make([]byte, page.Size)
	off := int64(ptr) * page.Size
	if _, err := a.file.ReadAt(buf, off); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("alloc: read page %d: %w", ptr, io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("alloc: read page %d: %w", ptr, err)
	}
	p, err := page.DecodeAs(buf, want)
	if err != nil {
		a.warn("corrupt page: unexpected type", zap.Uint64("pointer", uint64(ptr)), zap.String("wanted", want.String()), zap.Error(err))
		return nil, fmt.Errorf("alloc: page %d: %w", ptr, err)
	}
	return p, nil
}

func (a *Allocator) readRaw(ptr page.Pointer) (page.Page, error) {
	buf := make([]byte, page.Size)
	off := int64(ptr) * page.Size
	if _, err := a.file.ReadAt(buf, off); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("alloc: read page %d: %w", ptr, io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("alloc: read page %d: %w", ptr, err)
	}
	p, err := page.Decode(buf)
	if err != nil {
		a.warn("corrupt page: failed to decode", zap.Uint64("pointer", uint64(ptr)), zap.Error(err))
		return nil, fmt.Errorf("alloc: decode page %d: %w", ptr, err)
	}
	return p, nil
}

func (a *Allocator) writeRaw(ptr page.Pointer, p page.Page) error {
	buf, err := page.Encode(p)
	if err != nil {
		return fmt.Errorf("alloc: encode page %d: %w", ptr, err)
	}
	off := int64(ptr) * page.Size
	if _, err := a.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("alloc: write page %d: %w", ptr, err)
	}
	return nil
}
