package parcel

// Named scalars. Each packs at its base width but keeps its own tag so a
// reader can tell a job id from an arbitrary uint32.
type (
	Vpid         uint32
	Jobid        uint32
	Cellid       uint32
	NotifyID     uint32
	NodeState    uint8
	ProcState    uint8
	ExitCode     int8
	NotifyAction uint16
	AddrMode     uint16
	Cmd          uint16
)

// ProcessName identifies a process across the cluster.
type ProcessName struct {
	Cellid Cellid
	Jobid  Jobid
	Vpid   Vpid
}

// ByteObject is an opaque length-prefixed blob.
type ByteObject []byte

// KeyValue is a named value of any packable kind.
// Value holds a single element whose Go type matches ElemType(Type).
type KeyValue struct {
	Key   string
	Type  DataType
	Value any
}

// AttributeRecord is a registry value: a segment, the tokens that locate the
// container inside it, and the key/value pairs stored there.
type AttributeRecord struct {
	AddrMode AddrMode
	Segment  string
	Tokens   []string
	KeyVals  []*KeyValue
}

// AppContextMap maps an application onto a resource (host, path, ...).
type AppContextMap struct {
	Type uint8
	Data string
}

// AppContext describes one application of a launch.
type AppContext struct {
	Index    int32
	App      string
	NumProcs int32
	Argv     []string
	Env      []string
	Cwd      string
	Maps     []*AppContextMap
}

// Subscription asks the registry for notifications on a segment.
// Callback and UserTag belong to the subscribing process and are never packed.
type Subscription struct {
	AddrMode AddrMode
	Segment  string
	Tokens   []string
	Keys     []string

	Callback func(*NotifyData) `json:"-" yaml:"-" msgpack:"-" bson:"-" cbor:"-"`
	UserTag  any               `json:"-" yaml:"-" msgpack:"-" bson:"-" cbor:"-"`
}

// NotifyData is a batch of values delivered to a subscription callback.
type NotifyData struct {
	Callback int32
	AddrMode AddrMode
	Segment  string
	Values   []*AttributeRecord
}
