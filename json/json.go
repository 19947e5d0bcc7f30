// Package json provides a JSON codec implementation.
package json

import (
	"bytes"
	"encoding/json"

	"github.com/zoobzio/parcel"
)

// jsonCodec implements parcel.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec.
// Decoding is strict: unknown fields and trailing data are rejected.
func New() parcel.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return &json.SyntaxError{Offset: dec.InputOffset()}
	}
	return nil
}
