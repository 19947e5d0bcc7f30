package parcel

import (
	"fmt"
	"reflect"
	"strconv"
)

// DataType is the one-byte wire tag that prefixes every packed unit.
// Tag values are part of the wire format and must never be renumbered.
type DataType uint8

const (
	TypeNull     DataType = 0
	TypeByte     DataType = 1
	TypeDataType DataType = 2
	TypeBool     DataType = 3

	// TypeInt, TypeUint and TypeSize are generic aliases. They are resolved
	// to a concrete fixed-width tag before anything reaches the wire.
	TypeInt  DataType = 4
	TypeUint DataType = 5
	TypeSize DataType = 6

	TypeInt8   DataType = 7
	TypeUint8  DataType = 8
	TypeInt16  DataType = 9
	TypeUint16 DataType = 10
	TypeInt32  DataType = 11
	TypeUint32 DataType = 12
	TypeInt64  DataType = 13
	TypeUint64 DataType = 14

	// Floating-point kinds are recognised but have no wire encoding.
	TypeFloat      DataType = 15
	TypeFloat4     DataType = 16
	TypeFloat8     DataType = 17
	TypeFloat12    DataType = 18
	TypeFloat16    DataType = 19
	TypeDouble     DataType = 20
	TypeLongDouble DataType = 21

	TypeString     DataType = 22
	TypeByteObject DataType = 23
	TypeName       DataType = 24

	TypeVpid   DataType = 25
	TypeJobid  DataType = 26
	TypeCellid DataType = 27

	TypeNodeState DataType = 28
	TypeProcState DataType = 29
	TypeExitCode  DataType = 30

	TypeNotifyAction DataType = 31
	TypeAddrMode     DataType = 32
	TypeCmd          DataType = 33
	TypeNotifyID     DataType = 34

	TypeKeyVal        DataType = 35
	TypeAttrRecord    DataType = 36
	TypeAppContext    DataType = 37
	TypeAppContextMap DataType = 38
	TypeSubscription  DataType = 39
	TypeNotifyData    DataType = 40

	// FirstUserType is the first tag handed out by RegisterRecord.
	FirstUserType DataType = 128
)

const (
	// HeaderSize is the wire size of a unit header: tag byte plus a u64 count.
	HeaderSize = 1 + 8

	lengthPrefixSize = 4
)

var typeNames = map[DataType]string{
	TypeNull:          "null",
	TypeByte:          "byte",
	TypeDataType:      "data_type",
	TypeBool:          "bool",
	TypeInt:           "int",
	TypeUint:          "uint",
	TypeSize:          "size",
	TypeInt8:          "int8",
	TypeUint8:         "uint8",
	TypeInt16:         "int16",
	TypeUint16:        "uint16",
	TypeInt32:         "int32",
	TypeUint32:        "uint32",
	TypeInt64:         "int64",
	TypeUint64:        "uint64",
	TypeFloat:         "float",
	TypeFloat4:        "float4",
	TypeFloat8:        "float8",
	TypeFloat12:       "float12",
	TypeFloat16:       "float16",
	TypeDouble:        "double",
	TypeLongDouble:    "long_double",
	TypeString:        "string",
	TypeByteObject:    "byte_object",
	TypeName:          "name",
	TypeVpid:          "vpid",
	TypeJobid:         "jobid",
	TypeCellid:        "cellid",
	TypeNodeState:     "node_state",
	TypeProcState:     "proc_state",
	TypeExitCode:      "exit_code",
	TypeNotifyAction:  "notify_action",
	TypeAddrMode:      "addr_mode",
	TypeCmd:           "cmd",
	TypeNotifyID:      "notify_id",
	TypeKeyVal:        "keyval",
	TypeAttrRecord:    "attr_record",
	TypeAppContext:    "app_context",
	TypeAppContextMap: "app_context_map",
	TypeSubscription:  "subscription",
	TypeNotifyData:    "notify_data",
}

// fixedWidths holds the per-element wire size of every fixed-width kind.
var fixedWidths = map[DataType]int{
	TypeByte:         1,
	TypeDataType:     1,
	TypeBool:         1,
	TypeInt8:         1,
	TypeUint8:        1,
	TypeNodeState:    1,
	TypeProcState:    1,
	TypeExitCode:     1,
	TypeInt16:        2,
	TypeUint16:       2,
	TypeNotifyAction: 2,
	TypeAddrMode:     2,
	TypeCmd:          2,
	TypeInt32:        4,
	TypeUint32:       4,
	TypeVpid:         4,
	TypeJobid:        4,
	TypeCellid:       4,
	TypeNotifyID:     4,
	TypeInt64:        8,
	TypeUint64:       8,
	TypeName:         12,
}

// String returns the wire name of the type, or a numeric form for unknown tags.
func (t DataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	if rec, ok := lookupRecord(t); ok {
		return rec.name
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// IsValid returns true if the tag is a built-in kind or a registered record.
func IsValid(t DataType) bool {
	if _, ok := typeNames[t]; ok {
		return true
	}
	_, ok := lookupRecord(t)
	return ok
}

// IsFloat returns true for the floating-point family, none of which can be packed.
func IsFloat(t DataType) bool {
	return t >= TypeFloat && t <= TypeLongDouble
}

// IsGeneric returns true for the platform-dependent aliases.
func IsGeneric(t DataType) bool {
	return t == TypeInt || t == TypeUint || t == TypeSize
}

// IsComposite returns true for record kinds, built-in or registered.
func IsComposite(t DataType) bool {
	if t >= TypeKeyVal && t <= TypeNotifyData {
		return true
	}
	_, ok := lookupRecord(t)
	return ok
}

// Resolve maps the generic aliases onto the concrete tag used on the wire.
// TypeInt and TypeUint follow the host word size; TypeSize is always 64 bits
// so that headers read the same on every host. Concrete tags are returned unchanged.
func Resolve(t DataType) DataType {
	switch t {
	case TypeInt:
		if strconv.IntSize == 32 {
			return TypeInt32
		}
		return TypeInt64
	case TypeUint:
		if strconv.IntSize == 32 {
			return TypeUint32
		}
		return TypeUint64
	case TypeSize:
		return TypeUint64
	}
	return t
}

// ParseType looks up a tag by its wire name, including registered records.
func ParseType(name string) (DataType, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	if rec, ok := lookupRecordByName(name); ok {
		return rec.tag, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// elemTypes maps each built-in kind to the Go element type carried in slices.
var elemTypes = map[DataType]reflect.Type{
	TypeNull:          reflect.TypeFor[struct{}](),
	TypeByte:          reflect.TypeFor[byte](),
	TypeDataType:      reflect.TypeFor[DataType](),
	TypeBool:          reflect.TypeFor[bool](),
	TypeInt:           reflect.TypeFor[int](),
	TypeUint:          reflect.TypeFor[uint](),
	TypeInt8:          reflect.TypeFor[int8](),
	TypeInt16:         reflect.TypeFor[int16](),
	TypeUint16:        reflect.TypeFor[uint16](),
	TypeInt32:         reflect.TypeFor[int32](),
	TypeUint32:        reflect.TypeFor[uint32](),
	TypeInt64:         reflect.TypeFor[int64](),
	TypeUint64:        reflect.TypeFor[uint64](),
	TypeFloat4:        reflect.TypeFor[float32](),
	TypeFloat8:        reflect.TypeFor[float64](),
	TypeString:        reflect.TypeFor[string](),
	TypeByteObject:    reflect.TypeFor[ByteObject](),
	TypeName:          reflect.TypeFor[ProcessName](),
	TypeVpid:          reflect.TypeFor[Vpid](),
	TypeJobid:         reflect.TypeFor[Jobid](),
	TypeCellid:        reflect.TypeFor[Cellid](),
	TypeNodeState:     reflect.TypeFor[NodeState](),
	TypeProcState:     reflect.TypeFor[ProcState](),
	TypeExitCode:      reflect.TypeFor[ExitCode](),
	TypeNotifyAction:  reflect.TypeFor[NotifyAction](),
	TypeAddrMode:      reflect.TypeFor[AddrMode](),
	TypeCmd:           reflect.TypeFor[Cmd](),
	TypeNotifyID:      reflect.TypeFor[NotifyID](),
	TypeKeyVal:        reflect.TypeFor[*KeyValue](),
	TypeAttrRecord:    reflect.TypeFor[*AttributeRecord](),
	TypeAppContext:    reflect.TypeFor[*AppContext](),
	TypeAppContextMap: reflect.TypeFor[*AppContextMap](),
	TypeSubscription:  reflect.TypeFor[*Subscription](),
	TypeNotifyData:    reflect.TypeFor[*NotifyData](),
}

// ElemType returns the Go element type a slice handed to Pack must carry for t.
// TypeUint8 shares byte's Go type and TypeSize shares uint64's.
func ElemType(t DataType) (reflect.Type, bool) {
	switch t {
	case TypeUint8:
		t = TypeByte
	case TypeSize:
		t = TypeUint64
	case TypeFloat, TypeFloat12, TypeFloat16, TypeDouble, TypeLongDouble:
		t = TypeFloat8
	}
	if rt, ok := elemTypes[t]; ok {
		return rt, true
	}
	if rec, ok := lookupRecord(t); ok {
		return rec.ptrType, true
	}
	return nil, false
}

// TypeOf returns the tag for a Go element type, the inverse of ElemType.
// TypeByte is preferred over TypeUint8 and TypeUint64 over TypeSize.
func TypeOf(rt reflect.Type) (DataType, bool) {
	for t, et := range elemTypes {
		if et == rt {
			return t, true
		}
	}
	if rec, ok := lookupRecordByType(rt); ok {
		return rec.tag, true
	}
	return 0, false
}
