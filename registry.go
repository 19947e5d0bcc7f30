package parcel

import (
	"reflect"
	"sync"
)

// Record registry: user composite types keyed by tag, name and pointer type.
var (
	records       = make(map[DataType]*record)
	recordNames   = make(map[string]*record)
	recordTypes   = make(map[reflect.Type]*record)
	nextRecordTag = int(FirstUserType)
	recordsMu     sync.RWMutex
)

func lookupRecord(t DataType) (*record, bool) {
	if t < FirstUserType {
		return nil, false
	}
	recordsMu.RLock()
	defer recordsMu.RUnlock()
	rec, ok := records[t]
	return rec, ok
}

func lookupRecordByName(name string) (*record, bool) {
	recordsMu.RLock()
	defer recordsMu.RUnlock()
	rec, ok := recordNames[name]
	return rec, ok
}

func lookupRecordByType(rt reflect.Type) (*record, bool) {
	recordsMu.RLock()
	defer recordsMu.RUnlock()
	rec, ok := recordTypes[rt]
	return rec, ok
}

// ResetRecords clears every registered record and frees their tags.
// Packed data referring to them can no longer be decoded.
func ResetRecords() {
	recordsMu.Lock()
	defer recordsMu.Unlock()
	records = make(map[DataType]*record)
	recordNames = make(map[string]*record)
	recordTypes = make(map[reflect.Type]*record)
	nextRecordTag = int(FirstUserType)
}

// registryKey combines type and codec for cache lookup.
type registryKey struct {
	typ         reflect.Type
	contentType string
}

var (
	registry   = make(map[registryKey]any)
	registryMu sync.RWMutex
)

// Use returns a cached processor or builds a new one.
// The processor is cached by type and codec content type.
func Use[T any](codec Codec) (*Processor[T], error) {
	typ := reflect.TypeFor[T]()
	key := registryKey{typ: typ, contentType: codec.ContentType()}

	// Fast path: read-lock cache check
	registryMu.RLock()
	if cached, ok := registry[key]; ok {
		registryMu.RUnlock()
		return cached.(*Processor[T]), nil
	}
	registryMu.RUnlock()

	// Slow path: build and cache with write-lock
	registryMu.Lock()
	defer registryMu.Unlock()

	// Double-check pattern
	if cached, ok := registry[key]; ok {
		return cached.(*Processor[T]), nil
	}

	processor, err := NewProcessor[T]()
	if err != nil {
		return nil, err
	}
	processor.SetCodec(codec)

	registry[key] = processor
	return processor, nil
}

// Reset clears the processor registry.
// Useful for testing or when codecs need to be reconfigured.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[registryKey]any)
}
