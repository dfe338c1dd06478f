// Package serialization turns model state into explicit, versioned records.
//
// Every persisted type declares its state as a plain map (usually produced
// from a state struct by Encode) and a schema version. Records carry a type
// tag that is checked when they are loaded back.
package serialization

// Serializable is an interface that can be serialized and deserialized.
type Serializable interface {
	Serialize() (map[string]any, error)
	Deserialize(map[string]any) error
}

// Versioned is implemented by types whose schema has evolved. Types that do
// not implement it are at version 1.
type Versioned interface {
	SchemaVersion() int
}

// VersionOf returns the schema version of v.
func VersionOf(v any) int {
	if versioned, ok := v.(Versioned); ok {
		return versioned.SchemaVersion()
	}

	return 1
}
