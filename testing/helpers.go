// Package testing provides test utilities for parcel.
package testing

import (
	"sync"

	"github.com/zoobzio/parcel"
)

// SampleNames returns three process names from two jobs.
func SampleNames() []parcel.ProcessName {
	return []parcel.ProcessName{
		{Cellid: 0, Jobid: 1, Vpid: 0},
		{Cellid: 0, Jobid: 1, Vpid: 1},
		{Cellid: 2, Jobid: 7, Vpid: 0x01020304},
	}
}

// SampleAppContext returns an application context with every field populated.
func SampleAppContext() *parcel.AppContext {
	return &parcel.AppContext{
		Index:    0,
		App:      "/usr/bin/hostname",
		NumProcs: 4,
		Argv:     []string{"hostname", "-s"},
		Env:      []string{"PATH=/usr/bin", "OMPI_MCA_verbose=1"},
		Cwd:      "/home/runner",
		Maps: []*parcel.AppContextMap{
			{Type: 1, Data: "node01,node02"},
			{Type: 2, Data: "/tmp/hostfile"},
		},
	}
}

// EmptyAppContext returns an application context whose arrays are all empty.
func EmptyAppContext() *parcel.AppContext {
	return &parcel.AppContext{
		Index:    3,
		App:      "true",
		NumProcs: 1,
		Cwd:      "/",
	}
}

// SampleKeyValues returns one key/value of several kinds.
func SampleKeyValues() []*parcel.KeyValue {
	return []*parcel.KeyValue{
		{Key: "state", Type: parcel.TypeProcState, Value: parcel.ProcState(3)},
		{Key: "host", Type: parcel.TypeString, Value: "node01"},
		{Key: "pid", Type: parcel.TypeInt32, Value: int32(4242)},
		{Key: "start", Type: parcel.TypeUint64, Value: uint64(1 << 40)},
		{Key: "daemon", Type: parcel.TypeName, Value: parcel.ProcessName{Jobid: 0, Vpid: 1}},
		{Key: "marker", Type: parcel.TypeNull},
	}
}

// SampleAttributeRecord returns an attribute record holding SampleKeyValues.
func SampleAttributeRecord() *parcel.AttributeRecord {
	return &parcel.AttributeRecord{
		AddrMode: 1,
		Segment:  "orte-job-1",
		Tokens:   []string{"vpid-0", "node01"},
		KeyVals:  SampleKeyValues(),
	}
}

// SampleSubscription returns a subscription with a process-local callback.
func SampleSubscription() *parcel.Subscription {
	return &parcel.Subscription{
		AddrMode: 2,
		Segment:  "orte-job-1",
		Tokens:   []string{"vpid-0"},
		Keys:     []string{"state", "exit-code"},
		Callback: func(*parcel.NotifyData) {},
		UserTag:  "watcher",
	}
}

// SampleNotifyData returns a notification carrying two attribute records.
func SampleNotifyData() *parcel.NotifyData {
	return &parcel.NotifyData{
		Callback: 9,
		AddrMode: 1,
		Segment:  "orte-job-1",
		Values: []*parcel.AttributeRecord{
			SampleAttributeRecord(),
			{AddrMode: 0, Segment: "empty"},
		},
	}
}

// CountingTracker records every allocation and release reported by Unpack.
// It is safe for concurrent use.
type CountingTracker struct {
	mu       sync.Mutex
	allocs   map[parcel.DataType]int
	releases map[parcel.DataType]int
}

// NewCountingTracker creates an empty tracker.
func NewCountingTracker() *CountingTracker {
	return &CountingTracker{
		allocs:   make(map[parcel.DataType]int),
		releases: make(map[parcel.DataType]int),
	}
}

// Alloc implements parcel.Tracker.
func (c *CountingTracker) Alloc(t parcel.DataType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allocs[t]++
}

// Release implements parcel.Tracker.
func (c *CountingTracker) Release(t parcel.DataType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases[t]++
}

// Allocated returns the number of records of type t allocated so far.
func (c *CountingTracker) Allocated(t parcel.DataType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocs[t]
}

// Released returns the number of records of type t released so far.
func (c *CountingTracker) Released(t parcel.DataType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases[t]
}

// Live returns allocations minus releases across all types.
func (c *CountingTracker) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.allocs {
		n += v
	}
	for _, v := range c.releases {
		n -= v
	}
	return n
}

// Reset forgets every recorded event.
func (c *CountingTracker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allocs = make(map[parcel.DataType]int)
	c.releases = make(map[parcel.DataType]int)
}

// Packed packs each unit in order into a fresh buffer and returns the bytes.
// It panics on failure.
func Packed(units ...Unit) []byte {
	buf := parcel.NewBuffer()
	for _, u := range units {
		if err := parcel.Pack(buf, u.Src, u.Count, u.Type); err != nil {
			panic(err)
		}
	}
	return buf.Unload()
}

// Unit is one Pack call for Packed.
type Unit struct {
	Src   any
	Count int
	Type  parcel.DataType
}
