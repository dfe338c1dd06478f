package serialization

import (
	"github.com/mitchellh/mapstructure"
)

const tagName = "json"

// Encode flattens a state struct into a map. Field names follow the json
// tags so that the map and its JSON form agree.
func Encode(state any) (map[string]any, error) {
	out := map[string]any{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: tagName,
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}

	err = decoder.Decode(state)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Decode fills a state struct from a map produced by Encode, either directly
// or after a trip through a codec. Number types are converted as needed, so
// a float64 read from JSON can land in an int field.
func Decode(in any, state any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tagName,
		WeaklyTypedInput: true,
		Result:           state,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(in)
}
