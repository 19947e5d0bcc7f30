package parcel

import (
	"math"
	"strconv"
)

// encodePayload writes count elements of src as typ, without a header.
// Generic tags are accepted here with their host Go types; the header
// written by the caller carries the resolved tag.
func encodePayload(w *writer, src any, count int, typ DataType) error {
	switch typ {
	case TypeNull:
		return nil
	case TypeByte, TypeUint8:
		return encodeWith(w, src, count, typ, put8[byte])
	case TypeDataType:
		return encodeWith(w, src, count, typ, put8[DataType])
	case TypeBool:
		return encodeWith(w, src, count, typ, putBool)
	case TypeInt8:
		return encodeWith(w, src, count, typ, put8[int8])
	case TypeNodeState:
		return encodeWith(w, src, count, typ, put8[NodeState])
	case TypeProcState:
		return encodeWith(w, src, count, typ, put8[ProcState])
	case TypeExitCode:
		return encodeWith(w, src, count, typ, put8[ExitCode])
	case TypeInt16:
		return encodeWith(w, src, count, typ, put16[int16])
	case TypeUint16:
		return encodeWith(w, src, count, typ, put16[uint16])
	case TypeNotifyAction:
		return encodeWith(w, src, count, typ, put16[NotifyAction])
	case TypeAddrMode:
		return encodeWith(w, src, count, typ, put16[AddrMode])
	case TypeCmd:
		return encodeWith(w, src, count, typ, put16[Cmd])
	case TypeInt32:
		return encodeWith(w, src, count, typ, put32[int32])
	case TypeUint32:
		return encodeWith(w, src, count, typ, put32[uint32])
	case TypeVpid:
		return encodeWith(w, src, count, typ, put32[Vpid])
	case TypeJobid:
		return encodeWith(w, src, count, typ, put32[Jobid])
	case TypeCellid:
		return encodeWith(w, src, count, typ, put32[Cellid])
	case TypeNotifyID:
		return encodeWith(w, src, count, typ, put32[NotifyID])
	case TypeInt64:
		return encodeWith(w, src, count, typ, put64[int64])
	case TypeUint64, TypeSize:
		return encodeWith(w, src, count, typ, put64[uint64])
	case TypeInt:
		return encodeWith(w, src, count, typ, putInt[int])
	case TypeUint:
		return encodeWith(w, src, count, typ, putInt[uint])
	case TypeFloat, TypeFloat4, TypeFloat8, TypeFloat12, TypeFloat16, TypeDouble, TypeLongDouble:
		return newCodecError(ErrNotImplemented, "pack", typ, nil)
	case TypeString:
		return encodeWith(w, src, count, typ, putBlobs[string])
	case TypeByteObject:
		return encodeWith(w, src, count, typ, putBlobs[ByteObject])
	case TypeName:
		return encodeWith(w, src, count, typ, putNames)
	case TypeKeyVal:
		return encodeWith(w, src, count, typ, eachRecord(putKeyValue))
	case TypeAttrRecord:
		return encodeWith(w, src, count, typ, eachRecord(putAttributeRecord))
	case TypeAppContext:
		return encodeWith(w, src, count, typ, eachRecord(putAppContext))
	case TypeAppContextMap:
		return encodeWith(w, src, count, typ, eachRecord(putAppContextMap))
	case TypeSubscription:
		return encodeWith(w, src, count, typ, eachRecord(putSubscription))
	case TypeNotifyData:
		return encodeWith(w, src, count, typ, eachRecord(putNotifyData))
	}

	if rec, ok := lookupRecord(typ); ok {
		return rec.encode(w, src, count)
	}
	return newCodecError(ErrUnknownType, "pack", typ, nil)
}

func encodeWith[T any](w *writer, src any, count int, typ DataType, put func(*writer, []T) error) error {
	s, err := elems[T](src, count, typ, "pack")
	if err != nil {
		return err
	}
	return put(w, s)
}

// decodePayload reads n elements of a concrete wire tag.
func (d *decoder) decodePayload(tag DataType, n int) (any, error) {
	r := d.r
	switch tag {
	case TypeNull:
		return make([]struct{}, n), nil
	case TypeByte, TypeUint8:
		return get8[byte](r, n)
	case TypeDataType:
		return get8[DataType](r, n)
	case TypeBool:
		return getBool(r, n)
	case TypeInt8:
		return get8[int8](r, n)
	case TypeNodeState:
		return get8[NodeState](r, n)
	case TypeProcState:
		return get8[ProcState](r, n)
	case TypeExitCode:
		return get8[ExitCode](r, n)
	case TypeInt16:
		return get16[int16](r, n)
	case TypeUint16:
		return get16[uint16](r, n)
	case TypeNotifyAction:
		return get16[NotifyAction](r, n)
	case TypeAddrMode:
		return get16[AddrMode](r, n)
	case TypeCmd:
		return get16[Cmd](r, n)
	case TypeInt32:
		return get32[int32](r, n)
	case TypeUint32:
		return get32[uint32](r, n)
	case TypeVpid:
		return get32[Vpid](r, n)
	case TypeJobid:
		return get32[Jobid](r, n)
	case TypeCellid:
		return get32[Cellid](r, n)
	case TypeNotifyID:
		return get32[NotifyID](r, n)
	case TypeInt64:
		return get64[int64](r, n)
	case TypeUint64:
		return get64[uint64](r, n)
	case TypeFloat, TypeFloat4, TypeFloat8, TypeFloat12, TypeFloat16, TypeDouble, TypeLongDouble:
		return nil, newCodecError(ErrNotImplemented, "unpack", tag, nil)
	case TypeString:
		return getStrings(r, n)
	case TypeByteObject:
		return getByteObjects(r, n)
	case TypeName:
		return getNames(r, n)
	case TypeKeyVal:
		return decodeRecords(n, d.keyValue)
	case TypeAttrRecord:
		return decodeRecords(n, d.attributeRecord)
	case TypeAppContext:
		return decodeRecords(n, d.appContext)
	case TypeAppContextMap:
		return decodeRecords(n, d.appContextMap)
	case TypeSubscription:
		return decodeRecords(n, d.subscription)
	case TypeNotifyData:
		return decodeRecords(n, d.notifyData)
	}

	if rec, ok := lookupRecord(tag); ok {
		return rec.decode(d, n)
	}
	// Int, Uint and Size never appear on the wire.
	return nil, newCodecError(ErrUnknownType, "unpack", tag, nil)
}

// acceptsTag reports whether a unit tagged tag may be decoded as expected.
// Host-width integers accept either width so hosts with different word
// sizes can exchange them.
func acceptsTag(expected, tag DataType) bool {
	switch expected {
	case TypeInt:
		return tag == TypeInt32 || tag == TypeInt64
	case TypeUint:
		return tag == TypeUint32 || tag == TypeUint64
	}
	return Resolve(expected) == tag
}

// toHostInts converts a decoded fixed-width slice into []int or []uint.
func toHostInts(expected DataType, v any) (any, error) {
	switch expected {
	case TypeInt:
		switch s := v.(type) {
		case []int32:
			out := make([]int, len(s))
			for i, x := range s {
				out[i] = int(x)
			}
			return out, nil
		case []int64:
			out := make([]int, len(s))
			for i, x := range s {
				if strconv.IntSize == 32 && (x > math.MaxInt32 || x < math.MinInt32) {
					return nil, codecf(ErrCorrupt, "unpack", expected, "value %d overflows a %d-bit int", x, strconv.IntSize)
				}
				out[i] = int(x)
			}
			return out, nil
		}
	case TypeUint:
		switch s := v.(type) {
		case []uint32:
			out := make([]uint, len(s))
			for i, x := range s {
				out[i] = uint(x)
			}
			return out, nil
		case []uint64:
			out := make([]uint, len(s))
			for i, x := range s {
				if strconv.IntSize == 32 && x > math.MaxUint32 {
					return nil, codecf(ErrCorrupt, "unpack", expected, "value %d overflows a %d-bit uint", x, strconv.IntSize)
				}
				out[i] = uint(x)
			}
			return out, nil
		}
	}
	return v, nil
}
