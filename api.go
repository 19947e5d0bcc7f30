// Package parcel provides type-tagged binary packing for runtime messaging.
//
// Every value travels as a self-describing unit:
//
//	[tag:1][count:u64][payload]
//
// The tag names the element type, the count says how many elements follow.
// All multi-byte fields are big-endian. Strings and byte objects carry a u32
// length and no terminator. Composite records are packed field by field, each
// field a complete unit of its own, so a nested field reads exactly like a
// top-level one.
//
// # Packing
//
// Units are appended to a growable Buffer and read back in the same order:
//
//	buf := parcel.NewBuffer()
//	_ = parcel.Pack(buf, []int32{1, 2, 3}, 3, parcel.TypeInt32)
//	_ = parcel.Pack(buf, []*parcel.AppContext{app}, 1, parcel.TypeAppContext)
//
//	var ids []int32
//	n, err := parcel.Unpack(buf, &ids, parcel.TypeInt32)
//
// Pack sizes the unit before writing and grows the buffer at most once.
// Unpack validates every length and count against the bytes that are left,
// assigns the destination only on success, and releases partially decoded
// records on failure. Units nested deeper than MaxNestingDepth are rejected
// as corrupt.
//
// # Transport
//
// Buffers hand their bytes to a transport with Unload and adopt received bytes
// with Load. Peek and Skip let a reader inspect or step over units it does not
// care about.
//
// # Types
//
// Built-in kinds cover fixed-width integers, booleans, strings, byte objects,
// process names and the runtime's named scalars (Vpid, Jobid, AddrMode, ...).
// TypeInt and TypeUint follow the host word size and are written resolved;
// readers accept either width. Floating-point kinds are recognised but cannot
// be packed.
//
// Built-in records:
//
//   - KeyValue: a typed key/value pair
//   - AttributeRecord: addressing mode, segment, tokens and key/values
//   - AppContext and AppContextMap: an application launch description
//   - Subscription: a notification subscription
//   - NotifyData: a notification payload
//
// # User Records
//
// Structs register their own tag with RegisterRecord. Fields are declared with
// the parcel struct tag, naming the wire type of each field:
//
//	type Endpoint struct {
//	    Host  string   `parcel:"string"`
//	    Port  uint16   `parcel:"uint16"`
//	    Peers []string `parcel:"string"`
//	}
//
//	tag, err := parcel.RegisterRecord[Endpoint]("endpoint")
//
// # Codecs
//
// Processor reads and writes typed values through a Codec. The native codec
// (New) produces parcel units; the following submodules provide alternates:
//
//   - json - JSON encoding (application/json)
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - bson - BSON encoding (application/bson)
//   - cbor - deterministic CBOR encoding (application/cbor)
//
// # Observability
//
// Pack, Unpack, buffer growth and processor calls emit capitan signals (see
// signals.go). Diagnostics go to a zap logger installed with SetLogger.
package parcel

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
