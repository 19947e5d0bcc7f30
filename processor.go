package parcel

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Processor reads and writes values of one record or scalar type through a
// Codec. It defaults to the native parcel codec; SetCodec swaps in another
// content type (JSON, YAML, ...) without changing call sites.
//
// Processors are safe for concurrent use. Every call packs into its own
// buffer.
type Processor[T any] struct {
	mu    sync.RWMutex
	codec Codec

	typ      DataType
	typeName string
}

// NewProcessor creates a Processor for T using the native codec.
// T must be a built-in record, a registered record or a fixed-width kind;
// for records T is the struct type, not a pointer to it.
func NewProcessor[T any]() (*Processor[T], error) {
	rt := reflect.TypeFor[T]()
	typ, ok := TypeOf(reflect.PointerTo(rt))
	if !ok {
		typ, ok = TypeOf(rt)
	}
	if !ok {
		return nil, newCodecError(ErrUnsupportedType, "processor", TypeNull, fmt.Errorf("%s has no wire type", rt))
	}

	codec := New()
	p := &Processor[T]{
		codec:    codec,
		typ:      typ,
		typeName: rt.String(),
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), p.typeName)
	return p, nil
}

// SetCodec replaces the codec. Returns the processor for chaining.
// Safe for concurrent use.
func (p *Processor[T]) SetCodec(c Codec) *Processor[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codec = c
	return p
}

// Codec returns the codec in use.
func (p *Processor[T]) Codec() Codec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.codec
}

// Type returns the wire tag of T.
func (p *Processor[T]) Type() DataType {
	return p.typ
}

// Write encodes obj.
func (p *Processor[T]) Write(ctx context.Context, obj *T) ([]byte, error) {
	codec := p.Codec()
	start := time.Now()

	var retErr error
	var retData []byte
	defer func() {
		emitWriteComplete(ctx, codec.ContentType(), p.typeName, len(retData), time.Since(start), retErr)
	}()

	if obj == nil {
		retErr = newCodecError(ErrInvalidArgument, "write", p.typ, errNilRecord)
		return nil, retErr
	}

	data, err := codec.Marshal(obj)
	if err != nil {
		retErr = fmt.Errorf("marshal: %w", err)
		return nil, retErr
	}
	retData = data
	return retData, nil
}

// Read decodes data into a new T.
func (p *Processor[T]) Read(ctx context.Context, data []byte) (*T, error) {
	codec := p.Codec()
	start := time.Now()

	var retErr error
	defer func() {
		emitReadComplete(ctx, codec.ContentType(), p.typeName, len(data), time.Since(start), retErr)
	}()

	obj := new(T)
	if err := codec.Unmarshal(data, obj); err != nil {
		retErr = fmt.Errorf("unmarshal: %w", err)
		return nil, retErr
	}
	return obj, nil
}
