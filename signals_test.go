package parcel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitPackComplete_Success(_ *testing.T) {
	// Should not panic
	emitPackComplete(context.Background(), TypeInt32, 3, 21, 100*time.Microsecond, nil)
}

func TestEmitPackComplete_Error(_ *testing.T) {
	emitPackComplete(context.Background(), TypeInt32, 3, 0, 100*time.Microsecond, errors.New("test error"))
}

func TestEmitPackInconsistent(_ *testing.T) {
	emitPackInconsistent(context.Background(), TypeAppContext, 120, 118)
}

func TestEmitUnpackComplete_Success(_ *testing.T) {
	emitUnpackComplete(context.Background(), TypeString, 2, 25, 100*time.Microsecond, nil)
}

func TestEmitUnpackComplete_Error(_ *testing.T) {
	emitUnpackComplete(context.Background(), TypeString, 0, 0, 100*time.Microsecond, errors.New("test error"))
}

func TestEmitUnpackRollback(_ *testing.T) {
	emitUnpackRollback(context.Background(), TypeNotifyData, 4, errors.New("test error"))
}

func TestEmitBufferGrown(_ *testing.T) {
	emitBufferGrown(context.Background(), 128, 256)
}

func TestEmitRecordRegistered(_ *testing.T) {
	emitRecordRegistered(context.Background(), FirstUserType, "Endpoint")
}

func TestEmitProcessorCreated(_ *testing.T) {
	emitProcessorCreated(context.Background(), ContentType, "parcel.AppContext")
}

func TestEmitWriteComplete_Success(_ *testing.T) {
	emitWriteComplete(context.Background(), ContentType, "parcel.AppContext", 1024, 100*time.Millisecond, nil)
}

func TestEmitWriteComplete_Error(_ *testing.T) {
	emitWriteComplete(context.Background(), ContentType, "parcel.AppContext", 0, 100*time.Millisecond, errors.New("test error"))
}

func TestEmitReadComplete_Success(_ *testing.T) {
	emitReadComplete(context.Background(), ContentType, "parcel.AppContext", 1024, 100*time.Millisecond, nil)
}

func TestEmitReadComplete_Error(_ *testing.T) {
	emitReadComplete(context.Background(), ContentType, "parcel.AppContext", 0, 100*time.Millisecond, errors.New("test error"))
}
