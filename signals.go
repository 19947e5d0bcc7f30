package parcel

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for codec events.
var (
	SignalPackComplete     = capitan.NewSignal("parcel.pack.complete", "Pack operation finished")
	SignalPackInconsistent = capitan.NewSignal("parcel.pack.inconsistent", "Packed size differs from estimate")
	SignalUnpackComplete   = capitan.NewSignal("parcel.unpack.complete", "Unpack operation finished")
	SignalUnpackRollback   = capitan.NewSignal("parcel.unpack.rollback", "Partially decoded records released")
	SignalBufferGrown      = capitan.NewSignal("parcel.buffer.grown", "Buffer reallocated")
	SignalRecordRegistered = capitan.NewSignal("parcel.record.registered", "Record type registered")
	SignalProcessorCreated = capitan.NewSignal("parcel.processor.created", "Processor instantiated")
	SignalWriteComplete    = capitan.NewSignal("parcel.write.complete", "Processor write finished")
	SignalReadComplete     = capitan.NewSignal("parcel.read.complete", "Processor read finished")
)

// Keys for typed event data.
var (
	KeyType        = capitan.NewStringKey("type")
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyContentType = capitan.NewStringKey("content_type")
	KeyCount       = capitan.NewIntKey("count")
	KeySize        = capitan.NewIntKey("size")
	KeyExpected    = capitan.NewIntKey("expected")
	KeyFrom        = capitan.NewIntKey("from")
	KeyTo          = capitan.NewIntKey("to")
	KeyReleased    = capitan.NewIntKey("released")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

// emitPackComplete emits an event when a pack call finishes.
func emitPackComplete(ctx context.Context, typ DataType, count, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyType.Field(typ.String()),
		KeyCount.Field(count),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalPackComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalPackComplete, fields...)
	}
}

// emitPackInconsistent emits an event when the encoder disagrees with the estimator.
func emitPackInconsistent(ctx context.Context, typ DataType, expected, written int) {
	capitan.Error(ctx, SignalPackInconsistent,
		KeyType.Field(typ.String()),
		KeyExpected.Field(expected),
		KeySize.Field(written),
	)
}

// emitUnpackComplete emits an event when an unpack call finishes.
func emitUnpackComplete(ctx context.Context, typ DataType, count, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyType.Field(typ.String()),
		KeyCount.Field(count),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalUnpackComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalUnpackComplete, fields...)
	}
}

// emitUnpackRollback emits an event when a failed unpack releases records.
func emitUnpackRollback(ctx context.Context, typ DataType, released int, err error) {
	capitan.Error(ctx, SignalUnpackRollback,
		KeyType.Field(typ.String()),
		KeyReleased.Field(released),
		KeyError.Field(err),
	)
}

// emitBufferGrown emits an event when a buffer reallocates.
func emitBufferGrown(ctx context.Context, from, to int) {
	capitan.Emit(ctx, SignalBufferGrown,
		KeyFrom.Field(from),
		KeyTo.Field(to),
	)
}

// emitRecordRegistered emits an event when a record type is registered.
func emitRecordRegistered(ctx context.Context, typ DataType, typeName string) {
	capitan.Emit(ctx, SignalRecordRegistered,
		KeyType.Field(typ.String()),
		KeyTypeName.Field(typeName),
	)
}

// emitProcessorCreated emits an event when a processor is created.
func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitWriteComplete emits an event when a processor write finishes.
func emitWriteComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalWriteComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalWriteComplete, fields...)
	}
}

// emitReadComplete emits an event when a processor read finishes.
func emitReadComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalReadComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalReadComplete, fields...)
	}
}
