// Package stream turns a connected byte stream into a sequence of
// length-prefixed frames.
//
// A Stream owns one connection handle and one frame.Buffer. Read blocks
// until exactly one frame has been assembled; Write sends one frame as a
// single contiguous buffer. Nothing in this package locks, retries, or
// starts goroutines.
//
// Ownership boundary:
//   - framing state (buffer, read phase) is private to each Stream, Reader, and Writer
//   - the connection is shared between a Stream and its duplicates
//   - at most one reader may be active per connection at any time; two readers
//     split the raw bytes between two state machines and corrupt both
package stream
