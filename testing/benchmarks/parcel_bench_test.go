package benchmarks

import (
	"context"
	"testing"

	"github.com/zoobzio/parcel"
	"github.com/zoobzio/parcel/json"
	"github.com/zoobzio/parcel/msgpack"
	parceltest "github.com/zoobzio/parcel/testing"
)

func BenchmarkPack_Int32(b *testing.B) {
	src := make([]int32, 1024)
	for i := range src {
		src[i] = int32(i)
	}
	buf := parcel.NewBuffer(parcel.WithCapacity(8192))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = parcel.Pack(buf, src, len(src), parcel.TypeInt32)
	}
}

func BenchmarkPack_AppContext(b *testing.B) {
	src := []*parcel.AppContext{parceltest.SampleAppContext()}
	buf := parcel.NewBuffer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = parcel.Pack(buf, src, 1, parcel.TypeAppContext)
	}
}

func BenchmarkUnpack_AppContext(b *testing.B) {
	data := parceltest.Packed(parceltest.Unit{
		Src:   []*parcel.AppContext{parceltest.SampleAppContext()},
		Count: 1,
		Type:  parcel.TypeAppContext,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf := parcel.NewBuffer(parcel.WithCapacity(0))
		_ = buf.Load(data)
		var out []*parcel.AppContext
		_, _ = parcel.Unpack(buf, &out, parcel.TypeAppContext)
	}
}

func BenchmarkPack_NotifyData(b *testing.B) {
	src := []*parcel.NotifyData{parceltest.SampleNotifyData()}
	buf := parcel.NewBuffer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = parcel.Pack(buf, src, 1, parcel.TypeNotifyData)
	}
}

func BenchmarkProcessor_Write_Native(b *testing.B) {
	proc, _ := parcel.NewProcessor[parcel.AppContext]()
	app := parceltest.SampleAppContext()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Write(context.Background(), app)
	}
}

func BenchmarkProcessor_Write_JSON(b *testing.B) {
	proc, _ := parcel.NewProcessor[parcel.AppContext]()
	proc.SetCodec(json.New())
	app := parceltest.SampleAppContext()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Write(context.Background(), app)
	}
}

func BenchmarkProcessor_Write_MessagePack(b *testing.B) {
	proc, _ := parcel.NewProcessor[parcel.AppContext]()
	proc.SetCodec(msgpack.New())
	app := parceltest.SampleAppContext()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Write(context.Background(), app)
	}
}

func BenchmarkProcessor_Read_Native(b *testing.B) {
	proc, _ := parcel.NewProcessor[parcel.AppContext]()
	data, _ := proc.Write(context.Background(), parceltest.SampleAppContext())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Read(context.Background(), data)
	}
}

func BenchmarkBuffer_Grow(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := parcel.NewBuffer(parcel.WithCapacity(16))
		for j := 0; j < 64; j++ {
			_ = parcel.Pack(buf, []uint64{uint64(j)}, 1, parcel.TypeUint64)
		}
	}
}
