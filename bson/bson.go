// Package bson provides a BSON codec implementation.
package bson

import (
	"github.com/zoobzio/parcel"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
)

// bsonCodec implements parcel.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
//
// BSON documents must be structs or maps at the top level, so records travel
// but bare scalars such as parcel.Jobid do not. Field names are lowercased.
// KeyValue.Value carries no type information in BSON: it decodes to the
// nearest BSON kind (uint8 and uint16 become int32, a ByteObject becomes
// primitive.Binary, a ProcessName becomes bson.M). Use KeyValue.Type to
// convert it back, or the native codec when the exact Go type matters.
func New() parcel.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as a BSON document.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes a BSON document into v. Untyped nested documents
// decode as bson.M rather than bson.D.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(data))
	if err != nil {
		return err
	}
	dec.DefaultDocumentM()
	return dec.Decode(v)
}
