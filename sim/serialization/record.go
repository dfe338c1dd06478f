package serialization

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a record names a type that has not
	// been registered.
	ErrUnknownType = errors.New("unknown type")

	// ErrKindMismatch is returned when a record is loaded into a target of a
	// different type.
	ErrKindMismatch = errors.New("record kind mismatch")

	// ErrVersionMismatch is returned when a record was written with a schema
	// version the target does not read.
	ErrVersionMismatch = errors.New("record version mismatch")
)

// A Record is the self-contained persisted form of one object. Annotations
// belong to whoever stores the record and are never passed to the object.
type Record struct {
	Type        string            `json:"type"`
	Version     int               `json:"version"`
	Class       string            `json:"class,omitempty"`
	Name        string            `json:"name,omitempty"`
	State       map[string]any    `json:"state"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Annotate attaches a note to the record.
func (r *Record) Annotate(key, value string) {
	if r.Annotations == nil {
		r.Annotations = make(map[string]string)
	}

	r.Annotations[key] = value
}

// NewRecord serializes v into a record tagged with its type and version.
func NewRecord(v Serializable) (*Record, error) {
	state, err := v.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", TypeName(v), err)
	}

	return &Record{
		Type:    TypeName(v),
		Version: VersionOf(v),
		State:   state,
	}, nil
}

// RecordFromMap reads a record that was nested inside another object's
// state.
func RecordFromMap(in any) (*Record, error) {
	rec := &Record{}

	err := Decode(in, rec)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Instantiate creates a fresh object of the record's type and loads the
// record into it.
func (r *Record) Instantiate() (Serializable, error) {
	v, err := CreateInstance(r.Type)
	if err != nil {
		return nil, err
	}

	err = r.LoadInto(v)
	if err != nil {
		return nil, err
	}

	return v, nil
}

// LoadInto loads the record into an existing object, checking that the type
// tag and schema version match.
func (r *Record) LoadInto(target Serializable) error {
	if TypeName(target) != r.Type {
		return fmt.Errorf("%w: record is %s, target is %s",
			ErrKindMismatch, r.Type, TypeName(target))
	}

	if VersionOf(target) != r.Version {
		return fmt.Errorf("%w: %s record has version %d, want %d",
			ErrVersionMismatch, r.Type, r.Version, VersionOf(target))
	}

	return target.Deserialize(r.State)
}

// Marshal writes v as a record using the JSON codec.
func Marshal(v Serializable) ([]byte, error) {
	rec, err := NewRecord(v)
	if err != nil {
		return nil, err
	}

	return MarshalRecord(rec)
}

// MarshalRecord writes a record using the JSON codec.
func MarshalRecord(rec *Record) ([]byte, error) {
	buf := &bytes.Buffer{}

	err := JSONCodec{}.Encode(buf, rec)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalRecord reads a record written by MarshalRecord.
func UnmarshalRecord(data []byte) (*Record, error) {
	rec := &Record{}

	err := JSONCodec{}.Decode(bytes.NewReader(data), rec)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Unmarshal reads a record and instantiates the registered type it names.
func Unmarshal(data []byte) (Serializable, error) {
	rec, err := UnmarshalRecord(data)
	if err != nil {
		return nil, err
	}

	return rec.Instantiate()
}

// UnmarshalInto reads a record into target.
func UnmarshalInto(data []byte, target Serializable) error {
	rec, err := UnmarshalRecord(data)
	if err != nil {
		return err
	}

	return rec.LoadInto(target)
}
