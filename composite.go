package parcel

import (
	"errors"
	"math"
	"reflect"
)

var errNilRecord = errors.New("nil record")

// Composite records are packed field by field in a fixed order. Every field
// is a complete unit with its own header, so a nested field reads exactly
// like a top-level Pack of the same value. Variable-length arrays are
// preceded by an int32 count unit; the array unit is omitted when the count
// is zero.

func eachRecord[T any](put func(*writer, *T) error) func(*writer, []*T) error {
	return func(w *writer, recs []*T) error {
		for _, rec := range recs {
			if rec == nil {
				return newCodecError(ErrInvalidArgument, "pack", w.typ, errNilRecord)
			}
			if err := put(w, rec); err != nil {
				return err
			}
		}
		return nil
	}
}

// unit writes a complete unit: resolved tag, count, payload.
func (w *writer) unit(typ DataType, src any, count int) error {
	if err := w.header(Resolve(typ), count); err != nil {
		return err
	}
	return encodePayload(w, src, count, typ)
}

func (w *writer) int32Unit(v int32) error {
	return w.unit(TypeInt32, []int32{v}, 1)
}

func (w *writer) stringUnit(s string) error {
	return w.unit(TypeString, []string{s}, 1)
}

func (w *writer) addrModeUnit(m AddrMode) error {
	return w.unit(TypeAddrMode, []AddrMode{m}, 1)
}

func (w *writer) count32(n int) error {
	if n > math.MaxInt32 {
		return codecf(ErrInvalidArgument, "pack", w.typ, "%d elements exceed the int32 count field", n)
	}
	return w.int32Unit(int32(n))
}

// arrayField writes the count unit and, when count > 0, the array unit.
func (w *writer) arrayField(typ DataType, src any, count int) error {
	if err := w.count32(count); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return w.unit(typ, src, count)
}

func putKeyValue(w *writer, kv *KeyValue) error {
	const op = "pack"
	if err := w.stringUnit(kv.Key); err != nil {
		return withField(err, op, TypeKeyVal, "key")
	}
	vt := Resolve(kv.Type)
	if err := w.unit(TypeDataType, []DataType{vt}, 1); err != nil {
		return withField(err, op, TypeKeyVal, "type")
	}
	value, err := singleValue(kv.Value, kv.Type)
	if err != nil {
		return withField(err, op, TypeKeyVal, "value")
	}
	if err := w.unit(kv.Type, value, 1); err != nil {
		return withField(err, op, TypeKeyVal, "value")
	}
	return nil
}

func putAttributeRecord(w *writer, v *AttributeRecord) error {
	const op = "pack"
	if err := w.addrModeUnit(v.AddrMode); err != nil {
		return withField(err, op, TypeAttrRecord, "addr_mode")
	}
	if err := w.stringUnit(v.Segment); err != nil {
		return withField(err, op, TypeAttrRecord, "segment")
	}
	if err := w.arrayField(TypeString, v.Tokens, len(v.Tokens)); err != nil {
		return withField(err, op, TypeAttrRecord, "tokens")
	}
	if err := w.arrayField(TypeKeyVal, v.KeyVals, len(v.KeyVals)); err != nil {
		return withField(err, op, TypeAttrRecord, "keyvals")
	}
	return nil
}

func putAppContextMap(w *writer, m *AppContextMap) error {
	const op = "pack"
	if err := w.unit(TypeUint8, []uint8{m.Type}, 1); err != nil {
		return withField(err, op, TypeAppContextMap, "type")
	}
	if err := w.stringUnit(m.Data); err != nil {
		return withField(err, op, TypeAppContextMap, "data")
	}
	return nil
}

func putAppContext(w *writer, a *AppContext) error {
	const op = "pack"
	if err := w.int32Unit(a.Index); err != nil {
		return withField(err, op, TypeAppContext, "index")
	}
	if err := w.stringUnit(a.App); err != nil {
		return withField(err, op, TypeAppContext, "app")
	}
	if err := w.int32Unit(a.NumProcs); err != nil {
		return withField(err, op, TypeAppContext, "num_procs")
	}
	if err := w.arrayField(TypeString, a.Argv, len(a.Argv)); err != nil {
		return withField(err, op, TypeAppContext, "argv")
	}
	if err := w.arrayField(TypeString, a.Env, len(a.Env)); err != nil {
		return withField(err, op, TypeAppContext, "env")
	}
	if err := w.stringUnit(a.Cwd); err != nil {
		return withField(err, op, TypeAppContext, "cwd")
	}
	if err := w.arrayField(TypeAppContextMap, a.Maps, len(a.Maps)); err != nil {
		return withField(err, op, TypeAppContext, "maps")
	}
	return nil
}

func putSubscription(w *writer, s *Subscription) error {
	const op = "pack"
	if err := w.addrModeUnit(s.AddrMode); err != nil {
		return withField(err, op, TypeSubscription, "addr_mode")
	}
	if err := w.stringUnit(s.Segment); err != nil {
		return withField(err, op, TypeSubscription, "segment")
	}
	if err := w.arrayField(TypeString, s.Tokens, len(s.Tokens)); err != nil {
		return withField(err, op, TypeSubscription, "tokens")
	}
	if err := w.arrayField(TypeString, s.Keys, len(s.Keys)); err != nil {
		return withField(err, op, TypeSubscription, "keys")
	}
	return nil
}

func putNotifyData(w *writer, n *NotifyData) error {
	const op = "pack"
	if err := w.int32Unit(n.Callback); err != nil {
		return withField(err, op, TypeNotifyData, "callback")
	}
	if err := w.addrModeUnit(n.AddrMode); err != nil {
		return withField(err, op, TypeNotifyData, "addr_mode")
	}
	if err := w.stringUnit(n.Segment); err != nil {
		return withField(err, op, TypeNotifyData, "segment")
	}
	if err := w.arrayField(TypeAttrRecord, n.Values, len(n.Values)); err != nil {
		return withField(err, op, TypeNotifyData, "values")
	}
	return nil
}

// decoder reads units and keeps a log of the records it has allocated so a
// failure can release everything created since a mark.
type decoder struct {
	r       *reader
	tracker Tracker
	live    []DataType
	depth   int
}

// MaxNestingDepth bounds how deeply units may nest inside one another.
// A top-level unit is depth 1; every field unit adds one.
const MaxNestingDepth = 64

func (d *decoder) alloc(t DataType) {
	d.live = append(d.live, t)
	if d.tracker != nil {
		d.tracker.Alloc(t)
	}
}

func (d *decoder) mark() int {
	return len(d.live)
}

// release drops every record allocated since mark, newest first, and
// reports how many were released.
func (d *decoder) release(mark int) int {
	n := len(d.live) - mark
	for i := len(d.live) - 1; i >= mark; i-- {
		if d.tracker != nil {
			d.tracker.Release(d.live[i])
		}
	}
	d.live = d.live[:mark]
	return n
}

// unit reads a complete unit and checks its tag against expected.
// The count is validated against the remaining input before any
// element is allocated.
func (d *decoder) unit(expected DataType) (any, int, error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > MaxNestingDepth {
		return nil, 0, codecf(ErrCorrupt, "unpack", expected, "units nested deeper than %d", MaxNestingDepth)
	}

	tag, count, err := d.r.header()
	if err != nil {
		return nil, 0, err
	}
	if !acceptsTag(expected, tag) {
		return nil, 0, codecf(ErrTypeMismatch, "unpack", expected, "found %s", tag)
	}
	n, err := d.checkCount(tag, count)
	if err != nil {
		return nil, 0, err
	}
	v, err := d.decodePayload(tag, n)
	if err != nil {
		return nil, 0, err
	}
	v, err = toHostInts(expected, v)
	if err != nil {
		return nil, 0, err
	}
	return v, n, nil
}

func (d *decoder) checkCount(tag DataType, count uint64) (int, error) {
	if count > math.MaxInt {
		return 0, codecf(ErrCorrupt, "unpack", tag, "count %d out of range", count)
	}
	if min := minElemSize(tag); min > 0 && count > uint64(d.r.remaining()/min) {
		return 0, codecf(ErrTruncated, "unpack", tag, "%d elements need at least %d bytes each, %d left", count, min, d.r.remaining())
	}
	return int(count), nil
}

// one reads a unit that must hold exactly one element.
func one[T any](d *decoder, expected DataType) (T, error) {
	var zero T
	v, n, err := d.unit(expected)
	if err != nil {
		return zero, err
	}
	if n != 1 {
		return zero, codecf(ErrCorrupt, "unpack", expected, "field holds %d elements, want 1", n)
	}
	s, ok := v.([]T)
	if !ok {
		return zero, codecf(ErrTypeMismatch, "unpack", expected, "decoded %T", v)
	}
	return s[0], nil
}

func (d *decoder) count32() (int, error) {
	n, err := one[int32](d, TypeInt32)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, codecf(ErrCorrupt, "unpack", TypeInt32, "negative count %d", n)
	}
	return int(n), nil
}

// array reads a count unit and, when the count is positive, the array unit
// that must hold exactly that many elements. A zero count yields nil.
func (d *decoder) array(typ DataType) (any, int, error) {
	count, err := d.count32()
	if err != nil || count == 0 {
		return nil, 0, err
	}
	v, n, err := d.unit(typ)
	if err != nil {
		return nil, 0, err
	}
	if n != count {
		return nil, 0, codecf(ErrCorrupt, "unpack", typ, "array holds %d elements, count field says %d", n, count)
	}
	return v, n, nil
}

func arrayField[T any](d *decoder, typ DataType) ([]T, error) {
	v, n, err := d.array(typ)
	if err != nil || n == 0 {
		return nil, err
	}
	s, ok := v.([]T)
	if !ok {
		return nil, codecf(ErrTypeMismatch, "unpack", typ, "decoded %T", v)
	}
	return s, nil
}

func decodeRecords[T any](n int, decode func() (*T, error)) ([]*T, error) {
	out := make([]*T, n)
	for i := range out {
		rec, err := decode()
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

func (d *decoder) keyValue() (_ *KeyValue, err error) {
	const op = "unpack"
	mark := d.mark()
	kv := &KeyValue{}
	d.alloc(TypeKeyVal)
	defer func() {
		if err != nil {
			d.release(mark)
		}
	}()

	if kv.Key, err = one[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeKeyVal, "key")
	}
	if kv.Type, err = one[DataType](d, TypeDataType); err != nil {
		return nil, withField(err, op, TypeKeyVal, "type")
	}
	if IsGeneric(kv.Type) || !IsValid(kv.Type) {
		return nil, withField(codecf(ErrCorrupt, op, TypeKeyVal, "value type %s", kv.Type), op, TypeKeyVal, "type")
	}
	v, n, err := d.unit(kv.Type)
	if err != nil {
		return nil, withField(err, op, TypeKeyVal, "value")
	}
	if n != 1 {
		return nil, withField(codecf(ErrCorrupt, op, kv.Type, "value holds %d elements, want 1", n), op, TypeKeyVal, "value")
	}
	if kv.Type != TypeNull {
		kv.Value = reflect.ValueOf(v).Index(0).Interface()
	}
	return kv, nil
}

func (d *decoder) attributeRecord() (_ *AttributeRecord, err error) {
	const op = "unpack"
	mark := d.mark()
	v := &AttributeRecord{}
	d.alloc(TypeAttrRecord)
	defer func() {
		if err != nil {
			d.release(mark)
		}
	}()

	if v.AddrMode, err = one[AddrMode](d, TypeAddrMode); err != nil {
		return nil, withField(err, op, TypeAttrRecord, "addr_mode")
	}
	if v.Segment, err = one[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeAttrRecord, "segment")
	}
	if v.Tokens, err = arrayField[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeAttrRecord, "tokens")
	}
	if v.KeyVals, err = arrayField[*KeyValue](d, TypeKeyVal); err != nil {
		return nil, withField(err, op, TypeAttrRecord, "keyvals")
	}
	return v, nil
}

func (d *decoder) appContextMap() (_ *AppContextMap, err error) {
	const op = "unpack"
	mark := d.mark()
	m := &AppContextMap{}
	d.alloc(TypeAppContextMap)
	defer func() {
		if err != nil {
			d.release(mark)
		}
	}()

	if m.Type, err = one[uint8](d, TypeUint8); err != nil {
		return nil, withField(err, op, TypeAppContextMap, "type")
	}
	if m.Data, err = one[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeAppContextMap, "data")
	}
	return m, nil
}

func (d *decoder) appContext() (_ *AppContext, err error) {
	const op = "unpack"
	mark := d.mark()
	a := &AppContext{}
	d.alloc(TypeAppContext)
	defer func() {
		if err != nil {
			d.release(mark)
		}
	}()

	if a.Index, err = one[int32](d, TypeInt32); err != nil {
		return nil, withField(err, op, TypeAppContext, "index")
	}
	if a.App, err = one[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeAppContext, "app")
	}
	if a.NumProcs, err = one[int32](d, TypeInt32); err != nil {
		return nil, withField(err, op, TypeAppContext, "num_procs")
	}
	if a.Argv, err = arrayField[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeAppContext, "argv")
	}
	if a.Env, err = arrayField[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeAppContext, "env")
	}
	if a.Cwd, err = one[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeAppContext, "cwd")
	}
	if a.Maps, err = arrayField[*AppContextMap](d, TypeAppContextMap); err != nil {
		return nil, withField(err, op, TypeAppContext, "maps")
	}
	return a, nil
}

func (d *decoder) subscription() (_ *Subscription, err error) {
	const op = "unpack"
	mark := d.mark()
	s := &Subscription{}
	d.alloc(TypeSubscription)
	defer func() {
		if err != nil {
			d.release(mark)
		}
	}()

	if s.AddrMode, err = one[AddrMode](d, TypeAddrMode); err != nil {
		return nil, withField(err, op, TypeSubscription, "addr_mode")
	}
	if s.Segment, err = one[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeSubscription, "segment")
	}
	if s.Tokens, err = arrayField[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeSubscription, "tokens")
	}
	if s.Keys, err = arrayField[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeSubscription, "keys")
	}
	return s, nil
}

func (d *decoder) notifyData() (_ *NotifyData, err error) {
	const op = "unpack"
	mark := d.mark()
	n := &NotifyData{}
	d.alloc(TypeNotifyData)
	defer func() {
		if err != nil {
			d.release(mark)
		}
	}()

	if n.Callback, err = one[int32](d, TypeInt32); err != nil {
		return nil, withField(err, op, TypeNotifyData, "callback")
	}
	if n.AddrMode, err = one[AddrMode](d, TypeAddrMode); err != nil {
		return nil, withField(err, op, TypeNotifyData, "addr_mode")
	}
	if n.Segment, err = one[string](d, TypeString); err != nil {
		return nil, withField(err, op, TypeNotifyData, "segment")
	}
	if n.Values, err = arrayField[*AttributeRecord](d, TypeAttrRecord); err != nil {
		return nil, withField(err, op, TypeNotifyData, "values")
	}
	return n, nil
}
