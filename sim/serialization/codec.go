package serialization

import (
	"encoding/json"
	"io"
)

// Codec determines how records are written as bytes.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// JSONCodec writes records as indented JSON.
type JSONCodec struct{}

// Encode writes v as JSON to the provided writer.
func (c JSONCodec) Encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

// Decode reads JSON data from the reader into v.
func (c JSONCodec) Decode(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	return decoder.Decode(v)
}
