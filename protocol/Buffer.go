/*
File Name:  Buffer.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Buffer is the mutable byte container the rest of the codec is built on. It keeps independent reader and
writer cursors (so a partially consumed frame can keep accumulating bytes without copying what's already
been read) and supports marking/resetting either cursor, which the framing oracle (PeekVarintLen) relies on
to look ahead without committing to a read.

Buffers are single-threaded by contract: callers must not share one across concurrent accesses. Pooling the
backing array (so the codec itself never allocates in the hot receive path) is the caller's responsibility;
Reset() is provided for exactly that reuse pattern.
*/

package protocol

import "errors"

// ErrBufferFull is returned when a write would exceed MaxCapacity.
var ErrBufferFull = errors.New("protocol: buffer exceeds maximum capacity")

// Buffer is a growable byte container with independent read/write cursors.
type Buffer struct {
	data []byte
	r    int // read index
	w    int // write index

	rMark int // marked read index, set by MarkReader
	wMark int // marked write index, set by MarkWriter

	// MaxCapacity bounds how large the backing array may grow. 0 means unbounded.
	MaxCapacity int
}

// NewBuffer creates an empty buffer with the given initial capacity hint.
func NewBuffer(capacityHint int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacityHint)}
}

// WrapBuffer creates a buffer around existing bytes, positioned for reading (write cursor at the end).
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{data: b, w: len(b)}
}

// Reset empties the buffer and rewinds both cursors, retaining the backing array for reuse.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.r, b.w, b.rMark, b.wMark = 0, 0, 0, 0
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return b.w - b.r }

// Bytes returns the unread portion of the buffer. The slice aliases the buffer's backing array.
func (b *Buffer) Bytes() []byte { return b.data[b.r:b.w] }

// MarkReader remembers the current read position.
func (b *Buffer) MarkReader() { b.rMark = b.r }

// ResetReader rewinds the read cursor to the last MarkReader call.
func (b *Buffer) ResetReader() { b.r = b.rMark }

// MarkWriter remembers the current write position.
func (b *Buffer) MarkWriter() { b.wMark = b.w }

// ResetWriter rewinds the write cursor (and truncates the data) to the last MarkWriter call.
func (b *Buffer) ResetWriter() {
	b.w = b.wMark
	b.data = b.data[:b.w]
}

// Write appends p to the buffer, growing the backing array as needed. It fails if MaxCapacity is set and
// would be exceeded.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if b.MaxCapacity > 0 && b.w+len(p) > b.MaxCapacity {
		return 0, ErrBufferFull
	}
	b.data = append(b.data[:b.w], p...)
	b.w += len(p)
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

// Read consumes up to len(p) unread bytes into p.
func (b *Buffer) Read(p []byte) (n int, err error) {
	n = copy(p, b.data[b.r:b.w])
	b.r += n
	if n == 0 && len(p) > 0 {
		return 0, ErrShortRead
	}
	return n, nil
}

// ReadByte consumes and returns a single byte.
func (b *Buffer) ReadByte() (byte, error) {
	if b.r >= b.w {
		return 0, ErrShortRead
	}
	c := b.data[b.r]
	b.r++
	return c, nil
}

// Discard drops the already-read prefix, compacting the backing array. Callers typically do this between
// frames so a long-lived buffer doesn't grow unbounded from a stream of small reads.
func (b *Buffer) Discard() {
	if b.r == 0 {
		return
	}
	n := copy(b.data, b.data[b.r:b.w])
	b.data = b.data[:n]
	b.w = n
	b.r = 0
	b.rMark, b.wMark = 0, 0
}
