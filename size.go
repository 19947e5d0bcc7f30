package parcel

import (
	"math"
	"reflect"
)

// Size returns the payload bytes Pack writes for count elements of src as typ.
// The unit header is not included; add HeaderSize for the full footprint.
// Size never touches a buffer.
func Size(src any, count int, typ DataType) (int, error) {
	if count < 0 {
		return 0, codecf(ErrInvalidArgument, "size", typ, "negative count %d", count)
	}
	return payloadSize(src, count, typ)
}

func payloadSize(src any, count int, typ DataType) (int, error) {
	if IsFloat(typ) {
		return 0, newCodecError(ErrNotImplemented, "size", typ, nil)
	}
	if typ == TypeNull {
		return 0, nil
	}
	if w, ok := fixedWidths[Resolve(typ)]; ok {
		if err := checkFixed(src, count, typ); err != nil {
			return 0, err
		}
		if count > math.MaxInt/w {
			return 0, codecf(ErrCapacity, "size", typ, "%d elements overflow", count)
		}
		return count * w, nil
	}

	switch typ {
	case TypeString:
		return sumSizes(src, count, typ, func(s string) (int, error) { return blobSize(s), nil })
	case TypeByteObject:
		return sumSizes(src, count, typ, func(b ByteObject) (int, error) { return blobSize(b), nil })
	case TypeKeyVal:
		return sumSizes(src, count, typ, keyValueSize)
	case TypeAttrRecord:
		return sumSizes(src, count, typ, attributeRecordSize)
	case TypeAppContext:
		return sumSizes(src, count, typ, appContextSize)
	case TypeAppContextMap:
		return sumSizes(src, count, typ, appContextMapSize)
	case TypeSubscription:
		return sumSizes(src, count, typ, subscriptionSize)
	case TypeNotifyData:
		return sumSizes(src, count, typ, notifyDataSize)
	}

	if rec, ok := lookupRecord(typ); ok {
		return rec.size(src, count)
	}
	return 0, newCodecError(ErrUnknownType, "size", typ, nil)
}

// checkFixed holds fixed-width sources to the same shape rules as the
// variable-width ones, even though their size needs only the count.
func checkFixed(src any, count int, typ DataType) error {
	et, _ := ElemType(typ)
	rv := reflect.ValueOf(src)
	if !rv.IsValid() || rv.Type() != reflect.SliceOf(et) {
		return codecf(ErrTypeMismatch, "size", typ, "want []%s, got %T", et, src)
	}
	if rv.Len() < count {
		return codecf(ErrInvalidArgument, "size", typ, "count %d exceeds %d elements", count, rv.Len())
	}
	return nil
}

func sumSizes[T any](src any, count int, typ DataType, size func(T) (int, error)) (int, error) {
	s, err := elems[T](src, count, typ, "size")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, v := range s {
		n, err := size(v)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func blobSize[T ~string | ~[]byte](v T) int {
	return lengthPrefixSize + len(v)
}

// Field unit sizes used by the composite estimators.
const (
	int32UnitSize    = HeaderSize + 4
	uint8UnitSize    = HeaderSize + 1
	dataTypeUnitSize = HeaderSize + 1
	addrModeUnitSize = HeaderSize + 2
)

func stringUnitSize(s string) int {
	return HeaderSize + blobSize(s)
}

// stringsFieldSize covers a count unit plus, when non-empty, the array unit.
func stringsFieldSize(ss []string) int {
	n := int32UnitSize
	if len(ss) > 0 {
		n += HeaderSize
		for _, s := range ss {
			n += blobSize(s)
		}
	}
	return n
}

// recordsFieldSize covers a count unit plus, when non-empty, the array unit.
func recordsFieldSize[T any](recs []*T, size func(*T) (int, error)) (int, error) {
	n := int32UnitSize
	if len(recs) == 0 {
		return n, nil
	}
	n += HeaderSize
	for _, r := range recs {
		m, err := size(r)
		if err != nil {
			return 0, err
		}
		n += m
	}
	return n, nil
}

func keyValueSize(kv *KeyValue) (int, error) {
	if kv == nil {
		return 0, newCodecError(ErrInvalidArgument, "size", TypeKeyVal, errNilRecord)
	}
	value, err := singleValue(kv.Value, kv.Type)
	if err != nil {
		return 0, withField(err, "size", TypeKeyVal, "value")
	}
	n, err := payloadSize(value, 1, kv.Type)
	if err != nil {
		return 0, withField(err, "size", TypeKeyVal, "value")
	}
	return stringUnitSize(kv.Key) + dataTypeUnitSize + HeaderSize + n, nil
}

func attributeRecordSize(v *AttributeRecord) (int, error) {
	if v == nil {
		return 0, newCodecError(ErrInvalidArgument, "size", TypeAttrRecord, errNilRecord)
	}
	kvs, err := recordsFieldSize(v.KeyVals, keyValueSize)
	if err != nil {
		return 0, withField(err, "size", TypeAttrRecord, "keyvals")
	}
	return addrModeUnitSize + stringUnitSize(v.Segment) + stringsFieldSize(v.Tokens) + kvs, nil
}

func appContextMapSize(m *AppContextMap) (int, error) {
	if m == nil {
		return 0, newCodecError(ErrInvalidArgument, "size", TypeAppContextMap, errNilRecord)
	}
	return uint8UnitSize + stringUnitSize(m.Data), nil
}

func appContextSize(a *AppContext) (int, error) {
	if a == nil {
		return 0, newCodecError(ErrInvalidArgument, "size", TypeAppContext, errNilRecord)
	}
	maps, err := recordsFieldSize(a.Maps, appContextMapSize)
	if err != nil {
		return 0, withField(err, "size", TypeAppContext, "maps")
	}
	return int32UnitSize + // index
		stringUnitSize(a.App) +
		int32UnitSize + // num_procs
		stringsFieldSize(a.Argv) +
		stringsFieldSize(a.Env) +
		stringUnitSize(a.Cwd) +
		maps, nil
}

func subscriptionSize(s *Subscription) (int, error) {
	if s == nil {
		return 0, newCodecError(ErrInvalidArgument, "size", TypeSubscription, errNilRecord)
	}
	return addrModeUnitSize + stringUnitSize(s.Segment) + stringsFieldSize(s.Tokens) + stringsFieldSize(s.Keys), nil
}

func notifyDataSize(n *NotifyData) (int, error) {
	if n == nil {
		return 0, newCodecError(ErrInvalidArgument, "size", TypeNotifyData, errNilRecord)
	}
	values, err := recordsFieldSize(n.Values, attributeRecordSize)
	if err != nil {
		return 0, withField(err, "size", TypeNotifyData, "values")
	}
	return int32UnitSize + addrModeUnitSize + stringUnitSize(n.Segment) + values, nil
}

// minElemSize is the fewest bytes one element of a wire tag can occupy.
// Unpack uses it to reject counts the remaining input cannot hold before
// allocating anything.
func minElemSize(tag DataType) int {
	if w, ok := fixedWidths[tag]; ok {
		return w
	}
	var n int
	switch tag {
	case TypeString, TypeByteObject:
		return lengthPrefixSize
	case TypeKeyVal:
		n, _ = keyValueSize(&KeyValue{})
	case TypeAttrRecord:
		n, _ = attributeRecordSize(&AttributeRecord{})
	case TypeAppContext:
		n, _ = appContextSize(&AppContext{})
	case TypeAppContextMap:
		n, _ = appContextMapSize(&AppContextMap{})
	case TypeSubscription:
		n, _ = subscriptionSize(&Subscription{})
	case TypeNotifyData:
		n, _ = notifyDataSize(&NotifyData{})
	default:
		if rec, ok := lookupRecord(tag); ok {
			return rec.minSize
		}
	}
	return n
}

// singleValue wraps one element in a slice of its own type so it can travel
// through the slice-based dispatcher.
func singleValue(v any, typ DataType) (any, error) {
	if typ == TypeNull {
		return []struct{}{{}}, nil
	}
	if v == nil {
		return nil, codecf(ErrInvalidArgument, "pack", typ, "nil value")
	}
	rv := reflect.ValueOf(v)
	one := reflect.MakeSlice(reflect.SliceOf(rv.Type()), 1, 1)
	one.Index(0).Set(rv)
	return one.Interface(), nil
}

// elems asserts src carries the Go element type for typ and holds at least count elements.
func elems[T any](src any, count int, typ DataType, op string) ([]T, error) {
	s, ok := src.([]T)
	if !ok {
		return nil, codecf(ErrTypeMismatch, op, typ, "want %s, got %T", reflect.TypeFor[[]T](), src)
	}
	if len(s) < count {
		return nil, codecf(ErrInvalidArgument, op, typ, "count %d exceeds %d elements", count, len(s))
	}
	return s[:count], nil
}
