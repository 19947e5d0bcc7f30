package parcel

import (
	"context"
	"reflect"
)

// ContentType is the MIME type of the native codec.
const ContentType = "application/x-parcel"

// nativeCodec implements Codec with parcel units.
type nativeCodec struct{}

// New returns the native codec.
//
// Marshal accepts a single value of a packable type (int32, *AppContext,
// *T for a registered record T, or a record struct by value) or a slice of
// one, and produces exactly one unit. Unmarshal accepts a pointer to a single
// value, which requires a one-element unit, or a pointer to a slice, which
// takes every element. Bytes after the unit are rejected.
func New() Codec {
	return &nativeCodec{}
}

// ContentType returns the MIME type for parcel units.
func (c *nativeCodec) ContentType() string {
	return ContentType
}

// Marshal encodes v as a single unit.
func (c *nativeCodec) Marshal(v any) ([]byte, error) {
	src, count, typ, err := unitOf(v)
	if err != nil {
		return nil, err
	}
	buf := NewBuffer()
	if err := pack(context.Background(), buf, src, count, typ); err != nil {
		return nil, err
	}
	return buf.Unload(), nil
}

// unitOf maps a Go value onto the slice, count and tag Pack expects.
func unitOf(v any) (any, int, DataType, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, 0, TypeNull, codecf(ErrInvalidArgument, "marshal", TypeNull, "nil value")
	}
	rt := rv.Type()

	if typ, ok := TypeOf(rt); ok {
		s := reflect.MakeSlice(reflect.SliceOf(rt), 1, 1)
		s.Index(0).Set(rv)
		return s.Interface(), 1, typ, nil
	}
	if rt.Kind() == reflect.Slice {
		if typ, ok := TypeOf(rt.Elem()); ok {
			if rt.Name() != "" {
				rv = rv.Convert(reflect.SliceOf(rt.Elem()))
			}
			return rv.Interface(), rv.Len(), typ, nil
		}
	}
	if rt.Kind() != reflect.Pointer {
		// Record structs passed by value travel as their pointer type.
		if typ, ok := TypeOf(reflect.PointerTo(rt)); ok {
			p := reflect.New(rt)
			p.Elem().Set(rv)
			s := reflect.MakeSlice(reflect.SliceOf(p.Type()), 1, 1)
			s.Index(0).Set(p)
			return s.Interface(), 1, typ, nil
		}
	} else if !rv.IsNil() {
		return unitOf(rv.Elem().Interface())
	}
	return nil, 0, TypeNull, codecf(ErrUnsupportedType, "marshal", TypeNull, "%T has no wire type", v)
}

// Unmarshal decodes one unit into v.
func (c *nativeCodec) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return codecf(ErrInvalidArgument, "unmarshal", TypeNull, "destination must be a non-nil pointer, got %T", v)
	}
	target := rv.Elem()
	et := target.Type()

	buf := NewBuffer(WithCapacity(0))
	if err := buf.Load(data); err != nil {
		return err
	}

	var err error
	switch typ, ok := TypeOf(et); {
	case ok:
		err = unmarshalOne(buf, typ, et, func(e reflect.Value) { target.Set(e) })
	case et.Kind() == reflect.Slice && isPackable(et.Elem()):
		typ, _ := TypeOf(et.Elem())
		dst := reflect.New(reflect.SliceOf(et.Elem()))
		if _, err = unpack(context.Background(), buf, dst.Interface(), typ); err == nil {
			target.Set(dst.Elem().Convert(et))
		}
	case isPackable(reflect.PointerTo(et)):
		typ, _ := TypeOf(reflect.PointerTo(et))
		err = unmarshalOne(buf, typ, reflect.PointerTo(et), func(e reflect.Value) { target.Set(e.Elem()) })
	default:
		return codecf(ErrUnsupportedType, "unmarshal", TypeNull, "%s has no wire type", et)
	}
	if err != nil {
		return err
	}
	if buf.Remaining() != 0 {
		return codecf(ErrCorrupt, "unmarshal", TypeNull, "%d trailing bytes", buf.Remaining())
	}
	return nil
}

func isPackable(rt reflect.Type) bool {
	_, ok := TypeOf(rt)
	return ok
}

func unmarshalOne(buf *Buffer, typ DataType, et reflect.Type, set func(reflect.Value)) error {
	dst := reflect.New(reflect.SliceOf(et))
	n, err := unpack(context.Background(), buf, dst.Interface(), typ)
	if err != nil {
		return err
	}
	if n != 1 {
		return codecf(ErrTypeMismatch, "unmarshal", typ, "unit holds %d elements, want 1", n)
	}
	set(dst.Elem().Index(0))
	return nil
}
