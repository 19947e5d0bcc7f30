package parcel

import (
	"errors"
	"reflect"
	"testing"
)

func TestNativeCodec_ContentType(t *testing.T) {
	if got := New().ContentType(); got != "application/x-parcel" {
		t.Errorf("ContentType() = %q", got)
	}
}

func TestNativeCodec_MarshalShapes(t *testing.T) {
	app := &AppContext{App: "a"}

	tests := []struct {
		name  string
		v     any
		tag   DataType
		count byte
	}{
		{"scalar", int32(5), TypeInt32, 1},
		{"pointer to scalar", func() *uint16 { v := uint16(5); return &v }(), TypeUint16, 1},
		{"slice", []string{"a", "b", "c"}, TypeString, 3},
		{"empty slice", []Vpid{}, TypeVpid, 0},
		{"record pointer", app, TypeAppContext, 1},
		{"record value", *app, TypeAppContext, 1},
		{"record slice", []*AppContext{app, app}, TypeAppContext, 2},
		{"named slice", ByteObject{1, 2}, TypeByteObject, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := New().Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if !reflect.DeepEqual(data[:HeaderSize], header(tt.tag, tt.count)) {
				t.Errorf("header = % x, want % x", data[:HeaderSize], header(tt.tag, tt.count))
			}
		})
	}
}

func TestNativeCodec_MarshalRejects(t *testing.T) {
	var nilApp *AppContext

	tests := []struct {
		name string
		v    any
		want error
	}{
		{"nil", nil, ErrInvalidArgument},
		{"nil record pointer", nilApp, ErrInvalidArgument},
		{"map", map[string]int{}, ErrUnsupportedType},
		{"float", 1.5, ErrNotImplemented},
		{"unregistered struct", struct{ A int }{}, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New().Marshal(tt.v); !errors.Is(err, tt.want) {
				t.Errorf("Marshal() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNativeCodec_RoundTrip(t *testing.T) {
	c := New()

	t.Run("record value", func(t *testing.T) {
		in := Subscription{AddrMode: 2, Segment: "s", Keys: []string{"k1", "k2"}}
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		var out Subscription
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Errorf("Unmarshal() = %+v, want %+v", out, in)
		}
	})

	t.Run("record pointer", func(t *testing.T) {
		in := &AppContextMap{Type: 9, Data: "d"}
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		var out *AppContextMap
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Errorf("Unmarshal() = %+v, want %+v", out, in)
		}
	})

	t.Run("slice", func(t *testing.T) {
		in := []ProcessName{{Jobid: 1}, {Vpid: 2}}
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		var out []ProcessName
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Errorf("Unmarshal() = %+v, want %+v", out, in)
		}
	})

	t.Run("named slice", func(t *testing.T) {
		type vpids []Vpid
		data, err := c.Marshal(vpids{4, 5})
		if err != nil {
			t.Fatal(err)
		}
		var out vpids
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if !reflect.DeepEqual(out, vpids{4, 5}) {
			t.Errorf("Unmarshal() = %v", out)
		}
	})

	t.Run("empty slice", func(t *testing.T) {
		data, err := c.Marshal([]string{})
		if err != nil {
			t.Fatal(err)
		}
		if len(data) != HeaderSize {
			t.Errorf("len = %d, want %d", len(data), HeaderSize)
		}
		out := []string{"stale"}
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if len(out) != 0 {
			t.Errorf("Unmarshal() = %q, want empty", out)
		}
	})
}

func TestNativeCodec_UnmarshalRejects(t *testing.T) {
	c := New()
	one, _ := c.Marshal(int32(1))
	two, _ := c.Marshal([]int32{1, 2})
	trailing := append(append([]byte{}, one...), 0)

	var i32 int32
	var ch chan int

	tests := []struct {
		name string
		data []byte
		v    any
		want error
	}{
		{"nil target", one, nil, ErrInvalidArgument},
		{"non-pointer", one, i32, ErrInvalidArgument},
		{"unsupported target", one, &ch, ErrUnsupportedType},
		{"two into one", two, &i32, ErrTypeMismatch},
		{"wrong tag", one, new(string), ErrTypeMismatch},
		{"trailing bytes", trailing, &i32, ErrCorrupt},
		{"truncated", one[:HeaderSize+2], &i32, ErrTruncated},
		{"nil data", nil, &i32, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Unmarshal(tt.data, tt.v); !errors.Is(err, tt.want) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.want)
			}
		})
	}
}
