package page

import "errors"

// ErrTypeMismatch is returned by DecodeAs when the decoded type tag does not
// match the page variant the caller asked for. It indicates either disk
// corruption or a logic bug in the caller and is always fatal.
var ErrTypeMismatch = errors.New("page: type tag mismatch")

// ErrFull is returned by in-place mutators when a page has no room left for
// a new entry. Reaching this from the tree engine's orchestration is a bug:
// the engine is responsible for splitting before it would overflow a page.
var ErrFull = errors.New("page: full")

// ErrUnknownType is returned when a decoded tag does not correspond to any
// known page variant.
var ErrUnknownType = errors.New("page: unknown type tag")
