package parcel

import (
	"encoding/binary"
	"math"
)

// writer fills a window sized by the estimator. Running past the end of the
// window means the estimate was wrong, which is a defect in this package.
type writer struct {
	buf []byte
	off int
	typ DataType
}

func (w *writer) take(n int) ([]byte, error) {
	if n > len(w.buf)-w.off {
		return nil, codecf(ErrSizeMismatch, "pack", w.typ, "write of %d bytes at offset %d overruns %d-byte window", n, w.off, len(w.buf))
	}
	p := w.buf[w.off : w.off+n]
	w.off += n
	return p, nil
}

func (w *writer) header(t DataType, count int) error {
	p, err := w.take(HeaderSize)
	if err != nil {
		return err
	}
	p[0] = byte(t)
	binary.BigEndian.PutUint64(p[1:], uint64(count))
	return nil
}

func put8[T ~uint8 | ~int8](w *writer, src []T) error {
	p, err := w.take(len(src))
	if err != nil {
		return err
	}
	for i, v := range src {
		p[i] = byte(v)
	}
	return nil
}

func put16[T ~uint16 | ~int16](w *writer, src []T) error {
	p, err := w.take(2 * len(src))
	if err != nil {
		return err
	}
	for i, v := range src {
		binary.BigEndian.PutUint16(p[2*i:], uint16(v))
	}
	return nil
}

func put32[T ~uint32 | ~int32](w *writer, src []T) error {
	p, err := w.take(4 * len(src))
	if err != nil {
		return err
	}
	for i, v := range src {
		binary.BigEndian.PutUint32(p[4*i:], uint32(v))
	}
	return nil
}

// put64 writes each value as two big-endian 32-bit words, high word first.
// The words are taken from the integer value, never from its memory layout.
func put64[T ~uint64 | ~int64](w *writer, src []T) error {
	p, err := w.take(8 * len(src))
	if err != nil {
		return err
	}
	for i, v := range src {
		u := uint64(v)
		binary.BigEndian.PutUint32(p[8*i:], uint32(u>>32))
		binary.BigEndian.PutUint32(p[8*i+4:], uint32(u))
	}
	return nil
}

// putInt writes host-width integers at the width Resolve(TypeInt) selects.
func putInt[T ~int | ~uint](w *writer, src []T) error {
	if fixedWidths[Resolve(TypeInt)] == 4 {
		out := make([]uint32, len(src))
		for i, v := range src {
			out[i] = uint32(v)
		}
		return put32(w, out)
	}
	out := make([]uint64, len(src))
	for i, v := range src {
		out[i] = uint64(v)
	}
	return put64(w, out)
}

func putBool(w *writer, src []bool) error {
	p, err := w.take(len(src))
	if err != nil {
		return err
	}
	for i, v := range src {
		if v {
			p[i] = 1
		} else {
			p[i] = 0
		}
	}
	return nil
}

// putBlob writes a u32 length followed by the raw bytes. No terminator.
func putBlob[T ~string | ~[]byte](w *writer, v T) error {
	if uint64(len(v)) > math.MaxUint32 {
		return codecf(ErrInvalidArgument, "pack", w.typ, "%d-byte value exceeds the 32-bit length prefix", len(v))
	}
	p, err := w.take(lengthPrefixSize + len(v))
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(p, uint32(len(v)))
	copy(p[lengthPrefixSize:], v)
	return nil
}

func putBlobs[T ~string | ~[]byte](w *writer, src []T) error {
	for _, v := range src {
		if err := putBlob(w, v); err != nil {
			return err
		}
	}
	return nil
}

func putNames(w *writer, src []ProcessName) error {
	p, err := w.take(12 * len(src))
	if err != nil {
		return err
	}
	for i, n := range src {
		binary.BigEndian.PutUint32(p[12*i:], uint32(n.Cellid))
		binary.BigEndian.PutUint32(p[12*i+4:], uint32(n.Jobid))
		binary.BigEndian.PutUint32(p[12*i+8:], uint32(n.Vpid))
	}
	return nil
}

// reader consumes packed bytes. Every read is checked against what is left;
// running short is a truncated input, never a partial read.
type reader struct {
	buf []byte
	off int
	typ DataType
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, codecf(ErrTruncated, "unpack", r.typ, "need %d bytes at offset %d, %d left", n, r.off, r.remaining())
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *reader) header() (DataType, uint64, error) {
	p, err := r.take(HeaderSize)
	if err != nil {
		return 0, 0, err
	}
	return DataType(p[0]), binary.BigEndian.Uint64(p[1:]), nil
}

func get8[T ~uint8 | ~int8](r *reader, n int) ([]T, error) {
	p, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = T(p[i])
	}
	return out, nil
}

func get16[T ~uint16 | ~int16](r *reader, n int) ([]T, error) {
	p, err := r.take(2 * n)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = T(binary.BigEndian.Uint16(p[2*i:]))
	}
	return out, nil
}

func get32[T ~uint32 | ~int32](r *reader, n int) ([]T, error) {
	p, err := r.take(4 * n)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = T(binary.BigEndian.Uint32(p[4*i:]))
	}
	return out, nil
}

func get64[T ~uint64 | ~int64](r *reader, n int) ([]T, error) {
	p, err := r.take(8 * n)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		hi := uint64(binary.BigEndian.Uint32(p[8*i:]))
		lo := uint64(binary.BigEndian.Uint32(p[8*i+4:]))
		out[i] = T(hi<<32 | lo)
	}
	return out, nil
}

func getBool(r *reader, n int) ([]bool, error) {
	p, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := range out {
		switch p[i] {
		case 0:
		case 1:
			out[i] = true
		default:
			return nil, codecf(ErrCorrupt, "unpack", r.typ, "bool byte 0x%02x at offset %d", p[i], r.off-n+i)
		}
	}
	return out, nil
}

func getBlob(r *reader) ([]byte, error) {
	p, err := r.take(lengthPrefixSize)
	if err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(p)
	if uint64(size) > uint64(r.remaining()) {
		return nil, codecf(ErrTruncated, "unpack", r.typ, "length %d exceeds %d remaining bytes", size, r.remaining())
	}
	body, err := r.take(int(size))
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, body)
	return out, nil
}

func getStrings(r *reader, n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		p, err := r.take(lengthPrefixSize)
		if err != nil {
			return nil, err
		}
		size := binary.BigEndian.Uint32(p)
		body, err := r.take(int(size))
		if err != nil {
			return nil, err
		}
		out[i] = string(body)
	}
	return out, nil
}

func getByteObjects(r *reader, n int) ([]ByteObject, error) {
	out := make([]ByteObject, n)
	for i := range out {
		b, err := getBlob(r)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func getNames(r *reader, n int) ([]ProcessName, error) {
	p, err := r.take(12 * n)
	if err != nil {
		return nil, err
	}
	out := make([]ProcessName, n)
	for i := range out {
		out[i] = ProcessName{
			Cellid: Cellid(binary.BigEndian.Uint32(p[12*i:])),
			Jobid:  Jobid(binary.BigEndian.Uint32(p[12*i+4:])),
			Vpid:   Vpid(binary.BigEndian.Uint32(p[12*i+8:])),
		}
	}
	return out, nil
}
