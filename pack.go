package parcel

import (
	"context"
	"errors"
	"math"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// Pack appends one unit holding count elements of src to buf.
//
// src is a slice of the Go element type for typ (see ElemType) with at least
// count elements: []int32 for TypeInt32, []string for TypeString,
// []*AppContext for TypeAppContext, and so on. Generic tags are written
// resolved, so the unit header never carries TypeInt, TypeUint or TypeSize.
//
// The unit is sized before anything is written and the buffer grown once to
// fit it. On failure buf is left exactly as it was.
func Pack(buf *Buffer, src any, count int, typ DataType) error {
	if count <= 0 {
		return codecf(ErrInvalidArgument, "pack", typ, "count %d", count)
	}
	return pack(context.Background(), buf, src, count, typ)
}

// pack permits an empty unit, which Marshal uses for empty slices.
func pack(ctx context.Context, buf *Buffer, src any, count int, typ DataType) (err error) {
	start := time.Now()
	size := 0
	defer func() {
		emitPackComplete(ctx, typ, count, size, time.Since(start), err)
	}()

	if buf == nil {
		return codecf(ErrInvalidArgument, "pack", typ, "nil buffer")
	}
	if src == nil {
		return codecf(ErrInvalidArgument, "pack", typ, "nil source")
	}

	payload, err := payloadSize(src, count, typ)
	if err != nil {
		return err
	}
	if payload > math.MaxInt-HeaderSize {
		return codecf(ErrCapacity, "pack", typ, "%d-byte payload overflows", payload)
	}
	size = HeaderSize + payload

	if err := buf.Grow(size); err != nil {
		return err
	}

	w := &writer{buf: buf.window(size), typ: typ}
	if err := w.unit(typ, src, count); err != nil {
		if errors.Is(err, ErrSizeMismatch) {
			reportInconsistent(ctx, typ, size, w.off)
		}
		return err
	}
	if w.off != size {
		reportInconsistent(ctx, typ, size, w.off)
		return codecf(ErrSizeMismatch, "pack", typ, "wrote %d bytes, estimated %d", w.off, size)
	}

	buf.commit(size)
	return nil
}

// reportInconsistent flags an estimator/encoder disagreement. It is always a
// bug in this package, so development loggers panic on it.
func reportInconsistent(ctx context.Context, typ DataType, expected, written int) {
	Logger().DPanic("packed size differs from estimate",
		zap.Stringer("type", typ),
		zap.Int("expected", expected),
		zap.Int("written", written),
	)
	emitPackInconsistent(ctx, typ, expected, written)
}

// Unpack decodes the next unit of buf into dst and returns its element count.
//
// dst is a pointer to a slice of the Go element type for typ: *[]int32 for
// TypeInt32, *[]*AppContext for TypeAppContext. For TypeInt and TypeUint
// either packed width is accepted and converted to the host width.
//
// The count in the header is checked against the bytes remaining before
// anything is allocated. *dst is assigned and the read cursor advanced only
// on success; on failure every record created during the call is released
// through the buffer's Tracker and buf is left as it was.
func Unpack(buf *Buffer, dst any, typ DataType) (int, error) {
	return unpack(context.Background(), buf, dst, typ)
}

func unpack(ctx context.Context, buf *Buffer, dst any, typ DataType) (count int, err error) {
	start := time.Now()
	consumed := 0
	defer func() {
		emitUnpackComplete(ctx, typ, count, consumed, time.Since(start), err)
	}()

	if buf == nil {
		return 0, codecf(ErrInvalidArgument, "unpack", typ, "nil buffer")
	}
	out, err := destination(dst, typ)
	if err != nil {
		return 0, err
	}

	d := &decoder{
		r:       &reader{buf: buf.unread(), typ: typ},
		tracker: buf.tracker,
	}
	v, n, err := d.unit(typ)
	if err != nil {
		if released := d.release(0); released > 0 {
			Logger().Debug("unpack rolled back",
				zap.Stringer("type", typ),
				zap.Int("released", released),
				zap.Error(err),
			)
			emitUnpackRollback(ctx, typ, released, err)
		}
		return 0, err
	}

	out.Set(reflect.ValueOf(v))
	consumed = d.r.off
	buf.consume(consumed)
	return n, nil
}

// destination validates dst and returns the slice it points to.
func destination(dst any, typ DataType) (reflect.Value, error) {
	if IsFloat(typ) {
		return reflect.Value{}, newCodecError(ErrNotImplemented, "unpack", typ, nil)
	}
	et, ok := ElemType(typ)
	if !ok {
		return reflect.Value{}, newCodecError(ErrUnknownType, "unpack", typ, nil)
	}
	rv := reflect.ValueOf(dst)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, codecf(ErrInvalidArgument, "unpack", typ, "destination must be a non-nil pointer, got %T", dst)
	}
	if rv.Elem().Type() != reflect.SliceOf(et) {
		return reflect.Value{}, codecf(ErrTypeMismatch, "unpack", typ, "want *[]%s, got %T", et, dst)
	}
	return rv.Elem(), nil
}

// Peek returns the tag and element count of the next unit without consuming it.
func Peek(buf *Buffer) (DataType, int, error) {
	if buf == nil {
		return 0, 0, codecf(ErrInvalidArgument, "peek", TypeNull, "nil buffer")
	}
	r := &reader{buf: buf.unread()}
	tag, count, err := r.header()
	if err != nil {
		return 0, 0, err
	}
	if count > math.MaxInt {
		return 0, 0, codecf(ErrCorrupt, "peek", tag, "count %d out of range", count)
	}
	return tag, int(count), nil
}

// Skip consumes the next unit whatever its type. The unit is decoded in
// full, so a corrupt unit is reported rather than skipped.
func Skip(buf *Buffer) error {
	tag, _, err := Peek(buf)
	if err != nil {
		return err
	}
	d := &decoder{r: &reader{buf: buf.unread(), typ: tag}}
	if _, _, err := d.unit(tag); err != nil {
		return err
	}
	buf.consume(d.r.off)
	return nil
}
