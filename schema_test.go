package parcel

import (
	"errors"
	"reflect"
	"testing"
)

type endpoint struct {
	Host  string   `parcel:"string"`
	Port  uint16   `parcel:"uint16"`
	Peers []string `parcel:"string"`
	Slots int      `parcel:"int"`
	Note  string
}

type route struct {
	Via   *endpoint   `parcel:"endpoint"`
	Hops  []*endpoint `parcel:"endpoint"`
	Owner ProcessName `parcel:"name"`
	Skip  string      `parcel:"-"`
}

type tree struct {
	Label    string  `parcel:"string"`
	Children []*tree `parcel:"tree"`
}

func registerEndpoint(t *testing.T) DataType {
	t.Helper()
	tag, err := RegisterRecord[endpoint]("endpoint")
	if err != nil {
		t.Fatalf("RegisterRecord(endpoint) error: %v", err)
	}
	return tag
}

func TestRegisterRecord(t *testing.T) {
	defer ResetRecords()

	tag := registerEndpoint(t)
	if tag != FirstUserType {
		t.Errorf("tag = %d, want %d", tag, FirstUserType)
	}
	if tag.String() != "endpoint" {
		t.Errorf("String() = %q, want endpoint", tag.String())
	}
	if got, err := ParseType("endpoint"); err != nil || got != tag {
		t.Errorf("ParseType() = %d, %v", got, err)
	}
	if !IsValid(tag) || !IsComposite(tag) {
		t.Error("registered record should be a valid composite")
	}
	if et, ok := ElemType(tag); !ok || et != reflect.TypeFor[*endpoint]() {
		t.Errorf("ElemType() = %v, %v", et, ok)
	}
	if got, ok := TypeOf(reflect.TypeFor[*endpoint]()); !ok || got != tag {
		t.Errorf("TypeOf() = %d, %v", got, ok)
	}

	rec, ok := lookupRecord(tag)
	if !ok {
		t.Fatal("record not found by tag")
	}
	names := make([]string, len(rec.fields))
	for i, f := range rec.fields {
		names[i] = f.name
	}
	if !reflect.DeepEqual(names, []string{"Host", "Port", "Peers", "Slots"}) {
		t.Errorf("fields = %v", names)
	}

	next, err := RegisterRecord[tree]("tree")
	if err != nil {
		t.Fatalf("RegisterRecord(tree) error: %v", err)
	}
	if next != tag+1 {
		t.Errorf("second tag = %d, want %d", next, tag+1)
	}
}

func TestRegisterRecord_Duplicate(t *testing.T) {
	defer ResetRecords()
	registerEndpoint(t)

	type other struct {
		A string `parcel:"string"`
	}

	if _, err := RegisterRecord[endpoint]("endpoint2"); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("same type error = %v, want ErrDuplicateRecord", err)
	}
	if _, err := RegisterRecord[other]("endpoint"); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("same name error = %v, want ErrDuplicateRecord", err)
	}
	if _, err := RegisterRecord[other]("string"); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("built-in name error = %v, want ErrDuplicateRecord", err)
	}
	if nextRecordTag != int(FirstUserType)+1 {
		t.Errorf("failed registrations consumed tags: next = %d", nextRecordTag)
	}
}

func TestRegisterRecord_InvalidSchema(t *testing.T) {
	defer ResetRecords()

	type noFields struct {
		A string
	}
	type unknownName struct {
		A string `parcel:"widget"`
	}
	type wrongGoType struct {
		Port int `parcel:"uint16"`
	}
	type floatField struct {
		F float64 `parcel:"double"`
	}
	type namedSlice []string
	type namedSliceField struct {
		S namedSlice `parcel:"string"`
	}
	type loop struct {
		Next *loop `parcel:"loop"`
	}
	type unexported struct {
		Name string `parcel:"string"`
		age  int32  `parcel:"int32"`
	}

	tests := []struct {
		name     string
		register func() (DataType, error)
	}{
		{"not a struct", func() (DataType, error) { return RegisterRecord[int]("int_record") }},
		{"empty name", func() (DataType, error) { return RegisterRecord[endpoint]("") }},
		{"no fields", func() (DataType, error) { return RegisterRecord[noFields]("no_fields") }},
		{"unknown type name", func() (DataType, error) { return RegisterRecord[unknownName]("unknown_name") }},
		{"wrong go type", func() (DataType, error) { return RegisterRecord[wrongGoType]("wrong_go_type") }},
		{"float field", func() (DataType, error) { return RegisterRecord[floatField]("float_field") }},
		{"named slice", func() (DataType, error) { return RegisterRecord[namedSliceField]("named_slice") }},
		{"self by pointer", func() (DataType, error) { return RegisterRecord[loop]("loop") }},
		{"unexported field", func() (DataType, error) { return RegisterRecord[unexported]("unexported") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.register(); !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("RegisterRecord() error = %v, want ErrInvalidSchema", err)
			}
		})
	}
	if len(records) != 0 {
		t.Errorf("%d records registered by invalid schemas", len(records))
	}
}

func TestRegisterRecord_TagsExhausted(t *testing.T) {
	defer ResetRecords()

	recordsMu.Lock()
	nextRecordTag = 256
	recordsMu.Unlock()

	if _, err := RegisterRecord[endpoint]("endpoint"); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("RegisterRecord() error = %v, want ErrInvalidSchema", err)
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	defer ResetRecords()
	epTag := registerEndpoint(t)
	routeTag, err := RegisterRecord[route]("route")
	if err != nil {
		t.Fatalf("RegisterRecord(route) error: %v", err)
	}

	a := &endpoint{Host: "node01", Port: 7000, Peers: []string{"node02"}, Slots: -3, Note: "local"}
	src := []*route{
		{
			Via:   a,
			Hops:  []*endpoint{{Host: "node02", Port: 7001}, {Host: "node03"}},
			Owner: ProcessName{Jobid: 4, Vpid: 1},
			Skip:  "local",
		},
		{Via: &endpoint{}},
	}

	b := NewBuffer()
	if err := Pack(b, src, len(src), routeTag); err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	if tag, n, _ := Peek(b); tag != routeTag || n != 2 {
		t.Errorf("Peek() = %s, %d", tag, n)
	}

	tracker := newCountingTracker()
	in := loaded(t, b.Unload(), WithTracker(tracker))
	var out []*route
	if _, err := Unpack(in, &out, routeTag); err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}

	want := []*route{
		{
			Via:   &endpoint{Host: "node01", Port: 7000, Peers: []string{"node02"}, Slots: -3},
			Hops:  []*endpoint{{Host: "node02", Port: 7001}, {Host: "node03"}},
			Owner: ProcessName{Jobid: 4, Vpid: 1},
		},
		{Via: &endpoint{}},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("round trip = %+v, want %+v", out, want)
	}
	if tracker.allocs[routeTag] != 2 || tracker.allocs[epTag] != 4 {
		t.Errorf("allocs = %v", tracker.allocs)
	}
}

func TestRecord_SelfReference(t *testing.T) {
	defer ResetRecords()
	tag, err := RegisterRecord[tree]("tree")
	if err != nil {
		t.Fatalf("RegisterRecord() error: %v", err)
	}

	src := []*tree{{
		Label: "root",
		Children: []*tree{
			{Label: "a", Children: []*tree{{Label: "a1"}}},
			{Label: "b"},
		},
	}}
	var out []*tree
	if _, err := Unpack(loaded(t, packed(t, src, 1, tag)), &out, tag); err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	if !reflect.DeepEqual(out, src) {
		t.Errorf("round trip = %+v, want %+v", out, src)
	}
}

func TestRecord_NilNestedRecord(t *testing.T) {
	defer ResetRecords()
	registerEndpoint(t)
	routeTag, err := RegisterRecord[route]("route")
	if err != nil {
		t.Fatal(err)
	}

	err = Pack(NewBuffer(), []*route{{}}, 1, routeTag)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Pack() error = %v, want ErrInvalidArgument", err)
	}
	var ce *CodecError
	if !errors.As(err, &ce) || len(ce.Field) == 0 || ce.Field[0] != "Via" {
		t.Errorf("error %v should name field Via", err)
	}
}

func TestRecord_PartialFailureReleases(t *testing.T) {
	defer ResetRecords()
	tag, err := RegisterRecord[tree]("tree")
	if err != nil {
		t.Fatal(err)
	}

	src := []*tree{{Label: "root", Children: []*tree{{Label: "a"}, {Label: "b"}}}}
	data := packed(t, src, 1, tag)

	tracker := newCountingTracker()
	b := loaded(t, data[:len(data)-2], WithTracker(tracker))
	var out []*tree
	if _, err := Unpack(b, &out, tag); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Unpack() error = %v, want ErrCorrupt", err)
	}
	if tracker.allocs[tag] != 3 {
		t.Errorf("allocs = %d, want 3", tracker.allocs[tag])
	}
	if tracker.live() != 0 {
		t.Errorf("live = %d after failure", tracker.live())
	}
}

func TestResetRecords(t *testing.T) {
	tag := registerEndpoint(t)
	ResetRecords()

	if IsValid(tag) {
		t.Error("tag should be unknown after ResetRecords")
	}
	if _, err := ParseType("endpoint"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("ParseType() error = %v, want ErrUnknownType", err)
	}
	var out []*endpoint
	if _, err := Unpack(loaded(t, header(tag, 0)), &out, tag); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Unpack() error = %v, want ErrUnknownType", err)
	}

	again := registerEndpoint(t)
	defer ResetRecords()
	if again != FirstUserType {
		t.Errorf("tag after reset = %d, want %d", again, FirstUserType)
	}
}

func TestRecord_SelfReferenceNestingLimit(t *testing.T) {
	defer ResetRecords()
	tag, err := RegisterRecord[tree]("tree")
	if err != nil {
		t.Fatal(err)
	}

	root := &tree{Label: "0"}
	node := root
	for range MaxNestingDepth {
		child := &tree{Label: "n"}
		node.Children = []*tree{child}
		node = child
	}

	tracker := newCountingTracker()
	b := loaded(t, packed(t, []*tree{root}, 1, tag), WithTracker(tracker))
	var out []*tree
	if _, err := Unpack(b, &out, tag); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Unpack() error = %v, want ErrCorrupt", err)
	}
	if tracker.live() != 0 {
		t.Errorf("live = %d after failure", tracker.live())
	}
}
