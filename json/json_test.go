package json

import (
	"reflect"
	"testing"

	"github.com/zoobzio/parcel"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/json")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := New()

	original := parcel.AppContext{
		Index:    1,
		App:      "/bin/hostname",
		NumProcs: 4,
		Argv:     []string{"hostname", "-s"},
		Env:      []string{"PATH=/bin"},
		Cwd:      "/tmp",
		Maps:     []*parcel.AppContextMap{{Type: 1, Data: "node01"}},
	}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored parcel.AppContext
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if !reflect.DeepEqual(restored, original) {
		t.Errorf("round-trip failed: got %+v, want %+v", restored, original)
	}
}

func TestMarshalSubscription(t *testing.T) {
	c := New()

	original := parcel.Subscription{
		AddrMode: 2,
		Segment:  "global",
		Tokens:   []string{"job-1"},
		Keys:     []string{"state"},
		Callback: func(*parcel.NotifyData) {},
		UserTag:  "local",
	}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored parcel.Subscription
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if restored.Callback != nil || restored.UserTag != nil {
		t.Error("process-local fields should not travel")
	}
	if restored.Segment != original.Segment || !reflect.DeepEqual(restored.Keys, original.Keys) {
		t.Errorf("round-trip failed: got %+v", restored)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := New()

	var v parcel.AppContext
	err := c.Unmarshal([]byte("invalid json"), &v)
	if err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestUnmarshalUnknownField(t *testing.T) {
	c := New()

	var v parcel.AppContextMap
	err := c.Unmarshal([]byte(`{"Type":1,"Data":"x","Extra":true}`), &v)
	if err == nil {
		t.Error("Unmarshal() should reject unknown fields")
	}
}

func TestUnmarshalTrailingData(t *testing.T) {
	c := New()

	var v parcel.AppContextMap
	err := c.Unmarshal([]byte(`{"Type":1,"Data":"x"} {"Type":2}`), &v)
	if err == nil {
		t.Error("Unmarshal() should reject trailing data")
	}
}
