package parcel

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/zoobzio/sentinel"
	"go.uber.org/zap"
)

func init() {
	sentinel.Tag("parcel")
}

// record is the wire schema of a registered user struct.
type record struct {
	name    string
	tag     DataType
	goType  reflect.Type
	ptrType reflect.Type
	fields  []recordField
	minSize int
}

// recordField describes how one struct field travels.
type recordField struct {
	name  string
	index []int
	typ   DataType     // element tag, possibly generic
	elem  reflect.Type // Go element type
	slice bool         // packed as a count unit plus an array unit
}

// RegisterRecord assigns the next free tag to T and derives its wire schema
// from fields tagged `parcel:"<type name>"`, in declaration order.
//
//	type Endpoint struct {
//	    Host  string   `parcel:"string"`
//	    Port  uint16   `parcel:"uint16"`
//	    Peers []string `parcel:"string"`
//	}
//
//	tag, err := parcel.RegisterRecord[Endpoint]("endpoint")
//
// Scalar fields are packed as a one-element unit. Slice fields are packed as
// an int32 count unit followed, when the count is positive, by the array
// unit. A field may name another registered record, in which case its Go
// type is *R or []*R. A record may refer to itself through a slice field.
// Values travel as *T.
func RegisterRecord[T any](name string) (DataType, error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return 0, fmt.Errorf("%w: %s is not a struct", ErrInvalidSchema, rt)
	}
	if name == "" {
		return 0, fmt.Errorf("%w: empty record name", ErrInvalidSchema)
	}
	meta := sentinel.Scan[T]()

	recordsMu.Lock()
	rec, err := buildRecord(name, rt, meta)
	if err == nil {
		records[rec.tag] = rec
		recordNames[rec.name] = rec
		recordTypes[rec.ptrType] = rec
		nextRecordTag++
	}
	recordsMu.Unlock()
	if err != nil {
		return 0, err
	}

	Logger().Debug("record registered",
		zap.String("name", name),
		zap.Uint8("tag", uint8(rec.tag)),
		zap.Int("fields", len(rec.fields)),
	)
	emitRecordRegistered(context.Background(), rec.tag, meta.TypeName)
	return rec.tag, nil
}

// buildRecord runs with recordsMu held and must not call the locking lookups.
func buildRecord(name string, rt reflect.Type, meta sentinel.Metadata) (*record, error) {
	if _, ok := builtinByName(name); ok {
		return nil, fmt.Errorf("%w: %q names a built-in type", ErrDuplicateRecord, name)
	}
	if _, ok := recordNames[name]; ok {
		return nil, fmt.Errorf("%w: name %q", ErrDuplicateRecord, name)
	}
	ptr := reflect.PointerTo(rt)
	if _, ok := recordTypes[ptr]; ok {
		return nil, fmt.Errorf("%w: type %s", ErrDuplicateRecord, rt)
	}
	if nextRecordTag > math.MaxUint8 {
		return nil, fmt.Errorf("%w: no record tags left", ErrInvalidSchema)
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if tname, ok := sf.Tag.Lookup("parcel"); ok && tname != "" && tname != "-" && !sf.IsExported() {
			return nil, fmt.Errorf("%w: field %s is unexported and cannot carry %q", ErrInvalidSchema, sf.Name, tname)
		}
	}

	rec := &record{
		name:    name,
		tag:     DataType(nextRecordTag),
		goType:  rt,
		ptrType: ptr,
	}
	for _, fm := range meta.Fields {
		tname, ok := fm.Tags["parcel"]
		if !ok || tname == "" || tname == "-" {
			continue
		}
		f, err := rec.field(fm, tname)
		if err != nil {
			return nil, err
		}
		rec.fields = append(rec.fields, f)
	}
	if len(rec.fields) == 0 {
		return nil, fmt.Errorf("%w: %s has no parcel fields", ErrInvalidSchema, rt)
	}
	for _, f := range rec.fields {
		rec.minSize += f.minSize(rec)
	}
	return rec, nil
}

func (rec *record) field(fm sentinel.FieldMetadata, tname string) (recordField, error) {
	f := recordField{name: fm.Name, index: fm.Index}

	switch {
	case tname == rec.name:
		f.typ, f.elem = rec.tag, rec.ptrType
	default:
		if t, ok := builtinByName(tname); ok {
			f.typ = t
			f.elem, _ = ElemType(t)
		} else if other, ok := recordNames[tname]; ok {
			f.typ, f.elem = other.tag, other.ptrType
		} else {
			return f, fmt.Errorf("%w: field %s: unknown type %q", ErrInvalidSchema, fm.Name, tname)
		}
	}
	if IsFloat(f.typ) || f.typ == TypeNull {
		return f, fmt.Errorf("%w: field %s: type %q cannot be packed", ErrInvalidSchema, fm.Name, tname)
	}

	ft := fm.ReflectType
	switch {
	case ft == f.elem:
	case ft == reflect.SliceOf(f.elem):
		f.slice = true
	default:
		return f, fmt.Errorf("%w: field %s: Go type %s does not carry %q", ErrInvalidSchema, fm.Name, ft, tname)
	}
	if f.typ == rec.tag && !f.slice {
		return f, fmt.Errorf("%w: field %s: a record can only contain itself through a slice", ErrInvalidSchema, fm.Name)
	}
	return f, nil
}

// minSize is the fewest bytes the field can occupy on the wire.
func (f recordField) minSize(rec *record) int {
	if f.slice {
		return int32UnitSize
	}
	switch {
	case f.typ == TypeInt || f.typ == TypeUint:
		return HeaderSize + 4
	case f.typ >= FirstUserType:
		return HeaderSize + recordTypeMinSize(f.typ, rec)
	}
	return HeaderSize + minElemSize(Resolve(f.typ))
}

func recordTypeMinSize(tag DataType, self *record) int {
	if tag == self.tag {
		return self.minSize
	}
	return records[tag].minSize
}

func builtinByName(name string) (DataType, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

func (rec *record) values(src any, count int, op string) (reflect.Value, error) {
	rv := reflect.ValueOf(src)
	if !rv.IsValid() || rv.Type() != reflect.SliceOf(rec.ptrType) {
		return reflect.Value{}, codecf(ErrTypeMismatch, op, rec.tag, "want []%s, got %T", rec.ptrType, src)
	}
	if rv.Len() < count {
		return reflect.Value{}, codecf(ErrInvalidArgument, op, rec.tag, "count %d exceeds %d elements", count, rv.Len())
	}
	return rv, nil
}

// one wraps a scalar field value in a one-element slice for the dispatcher.
func (f recordField) one(v reflect.Value) any {
	s := reflect.MakeSlice(reflect.SliceOf(f.elem), 1, 1)
	s.Index(0).Set(v)
	return s.Interface()
}

func (rec *record) size(src any, count int) (int, error) {
	rv, err := rec.values(src, count, "size")
	if err != nil {
		return 0, err
	}
	total := 0
	for i := 0; i < count; i++ {
		p := rv.Index(i)
		if p.IsNil() {
			return 0, newCodecError(ErrInvalidArgument, "size", rec.tag, errNilRecord)
		}
		s := p.Elem()
		for _, f := range rec.fields {
			fv := s.FieldByIndex(f.index)
			var n int
			if f.slice {
				n = int32UnitSize
				if fv.Len() > 0 {
					m, err := payloadSize(fv.Interface(), fv.Len(), f.typ)
					if err != nil {
						return 0, withField(err, "size", rec.tag, f.name)
					}
					n += HeaderSize + m
				}
			} else {
				m, err := payloadSize(f.one(fv), 1, f.typ)
				if err != nil {
					return 0, withField(err, "size", rec.tag, f.name)
				}
				n = HeaderSize + m
			}
			total += n
		}
	}
	return total, nil
}

func (rec *record) encode(w *writer, src any, count int) error {
	rv, err := rec.values(src, count, "pack")
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		p := rv.Index(i)
		if p.IsNil() {
			return newCodecError(ErrInvalidArgument, "pack", rec.tag, errNilRecord)
		}
		s := p.Elem()
		for _, f := range rec.fields {
			fv := s.FieldByIndex(f.index)
			if f.slice {
				err = w.arrayField(f.typ, fv.Interface(), fv.Len())
			} else {
				err = w.unit(f.typ, f.one(fv), 1)
			}
			if err != nil {
				return withField(err, "pack", rec.tag, f.name)
			}
		}
	}
	return nil
}

func (rec *record) decode(d *decoder, n int) (any, error) {
	out := reflect.MakeSlice(reflect.SliceOf(rec.ptrType), n, n)
	for i := 0; i < n; i++ {
		p, err := rec.decodeOne(d)
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(p)
	}
	return out.Interface(), nil
}

func (rec *record) decodeOne(d *decoder) (_ reflect.Value, err error) {
	mark := d.mark()
	p := reflect.New(rec.goType)
	d.alloc(rec.tag)
	defer func() {
		if err != nil {
			d.release(mark)
		}
	}()

	s := p.Elem()
	for _, f := range rec.fields {
		var v any
		var n int
		if f.slice {
			v, n, err = d.array(f.typ)
		} else {
			v, n, err = d.unit(f.typ)
			if err == nil && n != 1 {
				err = codecf(ErrCorrupt, "unpack", f.typ, "field holds %d elements, want 1", n)
			}
		}
		if err != nil {
			return reflect.Value{}, withField(err, "unpack", rec.tag, f.name)
		}
		if n == 0 {
			continue
		}
		dv := reflect.ValueOf(v)
		if f.slice {
			s.FieldByIndex(f.index).Set(dv)
		} else {
			s.FieldByIndex(f.index).Set(dv.Index(0))
		}
	}
	return p, nil
}
