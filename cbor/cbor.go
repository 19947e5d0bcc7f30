// Package cbor provides a deterministic CBOR codec implementation.
package cbor

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zoobzio/parcel"
)

// cborCodec implements parcel.Codec for CBOR.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// New returns a CBOR codec using Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length items.
// The same value always produces the same bytes.
func New() parcel.Codec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
	return &cborCodec{enc: enc, dec: dec}
}

// ContentType returns the MIME type for CBOR.
func (c *cborCodec) ContentType() string {
	return "application/cbor"
}

// Marshal encodes v as CBOR.
func (c *cborCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func (c *cborCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
