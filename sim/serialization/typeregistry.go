package serialization

import (
	"fmt"
	"reflect"
	"sync"
)

type typeRegistry struct {
	lock sync.RWMutex

	types map[string]reflect.Type
}

func (r *typeRegistry) RegisterType(
	example Serializable,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	t := baseType(example)
	typeName := nameOfType(t)

	if existing, ok := r.types[typeName]; ok {
		if existing == t {
			return nil
		}

		return fmt.Errorf("type %s already registered", typeName)
	}

	r.types[typeName] = t

	return nil
}

func (r *typeRegistry) CreateInstance(typeName string) (Serializable, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	exampleType, ok := r.types[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	instance := reflect.New(exampleType).Interface()

	serializable, ok := instance.(Serializable)
	if !ok {
		return nil, fmt.Errorf("type %s is not a Serializable", typeName)
	}

	return serializable, nil
}

func (r *typeRegistry) IsRegistered(typeName string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.types[typeName]

	return ok
}

var registry = typeRegistry{
	types: map[string]reflect.Type{},
}

func baseType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}

func nameOfType(t reflect.Type) string {
	return t.PkgPath() + "." + t.Name()
}

// RegisterType makes the type of the example known so that records tagged
// with it can be instantiated. The example may be a pointer or a value.
// Registering the same type twice is allowed.
func RegisterType(example Serializable) error {
	return registry.RegisterType(example)
}

// MustRegisterType is RegisterType for package init functions.
func MustRegisterType(example Serializable) {
	if err := RegisterType(example); err != nil {
		panic(err)
	}
}

// CreateInstance allocates a zero value of a registered type and returns a
// pointer to it.
func CreateInstance(typeName string) (Serializable, error) {
	return registry.CreateInstance(typeName)
}

// IsRegistered tells if a type name is known.
func IsRegistered(typeName string) bool {
	return registry.IsRegistered(typeName)
}

// TypeName returns the type tag of v, as stored in records.
func TypeName(v any) string {
	return nameOfType(baseType(v))
}
