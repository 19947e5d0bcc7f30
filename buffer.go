package parcel

import (
	"context"
	"math"

	"go.uber.org/zap"
)

// DefaultCapacity is the initial allocation of a buffer created without WithCapacity.
const DefaultCapacity = 128

// Tracker observes record allocation during unpack.
// Alloc is called for every record created; Release for every record
// discarded because the unit it belonged to failed to decode.
type Tracker interface {
	Alloc(t DataType)
	Release(t DataType)
}

// Buffer is a growable byte region with independent write and read cursors.
//
// The write cursor always sits at Len(); packed bytes occupy [0, Len()) and
// Space() bytes remain before the next growth. Unpack consumes from the read
// cursor; Remaining() bytes lie between it and the end of the packed data.
//
// Cursors are offsets, so they survive reallocation. Slices returned by
// Bytes are not: any growth may move the backing array.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	base    []byte
	used    int
	space   int
	read    int
	toEnd   int
	max     int
	tracker Tracker
}

// BufferOption configures a Buffer.
type BufferOption func(*Buffer)

// WithCapacity sets the initial allocation.
func WithCapacity(n int) BufferOption {
	return func(b *Buffer) {
		if n >= 0 {
			b.base = make([]byte, n)
		}
	}
}

// WithMaxCapacity caps the allocation; growth beyond it fails with ErrCapacity.
// Zero means unbounded.
func WithMaxCapacity(n int) BufferOption {
	return func(b *Buffer) {
		if n >= 0 {
			b.max = n
		}
	}
}

// WithTracker installs allocation instrumentation for unpack.
func WithTracker(t Tracker) BufferOption {
	return func(b *Buffer) {
		b.tracker = t
	}
}

// NewBuffer creates an empty buffer.
func NewBuffer(opts ...BufferOption) *Buffer {
	b := &Buffer{}
	for _, opt := range opts {
		opt(b)
	}
	if b.base == nil {
		b.base = make([]byte, DefaultCapacity)
	}
	if b.max > 0 && len(b.base) > b.max {
		b.base = b.base[:b.max]
	}
	b.space = len(b.base)
	return b
}

// Len returns the number of packed bytes, which is also the write offset.
func (b *Buffer) Len() int { return b.used }

// Cap returns the current allocation.
func (b *Buffer) Cap() int { return len(b.base) }

// Space returns the bytes available before the next growth.
func (b *Buffer) Space() int { return b.space }

// Remaining returns the packed bytes not yet consumed by Unpack.
func (b *Buffer) Remaining() int { return b.toEnd }

// ReadOffset returns the offset of the next byte Unpack will consume.
func (b *Buffer) ReadOffset() int { return b.read }

// Bytes returns the packed bytes. The slice aliases the buffer and is only
// valid until the next call that may grow it.
func (b *Buffer) Bytes() []byte { return b.base[:b.used] }

// Grow ensures at least n bytes of space remain after the write cursor.
//
// When space is short the backing array is reallocated to the larger of
// double the current capacity and the exact requirement, clamped to the
// configured maximum. Existing bytes keep their offsets. On failure the
// buffer is left exactly as it was.
func (b *Buffer) Grow(n int) error {
	if n < 0 {
		return codecf(ErrInvalidArgument, "grow", TypeNull, "negative size %d", n)
	}
	if b.space >= n {
		return nil
	}

	if n > math.MaxInt-b.used {
		return codecf(ErrCapacity, "grow", TypeNull, "%d bytes overflows the address space", n)
	}
	need := b.used + n
	if b.max > 0 && need > b.max {
		return codecf(ErrCapacity, "grow", TypeNull, "need %d bytes, limit %d", need, b.max)
	}

	newCap := len(b.base)
	if newCap <= math.MaxInt/2 {
		newCap *= 2
	}
	if newCap < need {
		newCap = need
	}
	if b.max > 0 && newCap > b.max {
		newCap = b.max
	}

	oldCap := len(b.base)
	grown := make([]byte, newCap)
	copy(grown, b.base[:b.used])
	b.base = grown
	b.space = newCap - b.used

	Logger().Debug("buffer grown",
		zap.Int("from", oldCap),
		zap.Int("to", newCap),
		zap.Int("requested", n),
	)
	emitBufferGrown(context.Background(), oldCap, newCap)
	return nil
}

// Load adopts data as the packed contents of an empty buffer, ready for Unpack.
// The buffer takes ownership of data.
func (b *Buffer) Load(data []byte) error {
	if data == nil {
		return codecf(ErrInvalidArgument, "load", TypeNull, "nil payload")
	}
	if b.used != 0 {
		return codecf(ErrInvalidArgument, "load", TypeNull, "buffer already holds %d bytes", b.used)
	}
	b.base = data[:len(data):len(data)]
	b.used = len(data)
	b.space = 0
	b.read = 0
	b.toEnd = len(data)
	return nil
}

// Unload hands the packed bytes to the caller and leaves the buffer empty.
// Ownership of the returned slice passes to the caller.
func (b *Buffer) Unload() []byte {
	data := b.base[:b.used:b.used]
	b.base = make([]byte, 0)
	b.used = 0
	b.space = 0
	b.read = 0
	b.toEnd = 0
	return data
}

// Reset discards all packed bytes but keeps the allocation.
func (b *Buffer) Reset() {
	b.used = 0
	b.space = len(b.base)
	b.read = 0
	b.toEnd = 0
}

// window returns the n bytes after the write cursor. The caller must have
// called Grow(n) first and must re-derive the window after any later growth.
func (b *Buffer) window(n int) []byte {
	return b.base[b.used : b.used+n : b.used+n]
}

// commit advances the write cursor over n bytes written into the window.
func (b *Buffer) commit(n int) {
	b.used += n
	b.space -= n
	b.toEnd += n
}

// unread returns the packed bytes from the read cursor onwards.
func (b *Buffer) unread() []byte {
	return b.base[b.read:b.used]
}

// consume advances the read cursor over n bytes.
func (b *Buffer) consume(n int) {
	b.read += n
	b.toEnd -= n
}
