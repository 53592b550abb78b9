// Package codec turns messages into the compact JSON text stored as a record
// payload.
//
// Encoding is structural, with a small override table for geometry types:
// mgl32.Vec3 and mgl32.Quat become objects with named components and
// mgl32.Mat4 becomes a flat array of its 16 elements in storage
// (column-major) order. Overrides apply wherever these types appear,
// including inside pointers, slices, arrays and map values.
package codec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
)

// Codec is safe for concurrent use.
type Codec struct {
	api     jsoniter.API
	decoder jsoniter.API
}

var defaultCodec = New()

// Default returns the process-wide codec.
func Default() *Codec {
	return defaultCodec
}

// New builds a codec with the geometry overrides installed.
func New() *Codec {
	api := jsoniter.Config{
		EscapeHTML:             false,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
	api.RegisterExtension(newOverrides())

	decoder := jsoniter.Config{
		UseNumber:              true,
		ValidateJsonRawMessage: true,
	}.Froze()

	return &Codec{api: api, decoder: decoder}
}

// Marshal returns the single-line JSON form of v. Values whose strings are
// not valid UTF-8 are rejected.
func (c *Codec) Marshal(v any) (string, error) {
	data, err := c.api.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec: marshal %T: %w", v, err)
	}
	s := string(data)
	// compact output never breaks lines; a newline would split the record
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("codec: marshal %T: payload contains a line break", v)
	}
	// strings are copied through unescaped, so bad input bytes reach the output
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("codec: marshal %T: payload is not valid UTF-8", v)
	}
	return s, nil
}

// Unmarshal decodes data into v. Numbers decoded into interface values are
// json.Number so integers survive unchanged.
func (c *Codec) Unmarshal(data []byte, v any) error {
	if err := c.decoder.Unmarshal(data, v); err != nil {
		return fmt.Errorf("codec: unmarshal: %w", err)
	}
	return nil
}

// overrides is a jsoniter extension that consults a type table before the
// default encoder is built.
type overrides struct {
	jsoniter.DummyExtension
	encoders map[reflect.Type]jsoniter.ValEncoder
}

func (o *overrides) CreateEncoder(typ reflect2.Type) jsoniter.ValEncoder {
	return o.encoders[typ.Type1()]
}
