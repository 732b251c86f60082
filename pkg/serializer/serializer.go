package serializer

import (
	"errors"
	"fmt"
	"strings"
)

type SerializerType int

const (
	SERIALIZER_JSON SerializerType = iota
	SERIALIZER_YAML
)

var (
	ErrInvalidSerializer = errors.New("serializer: invalid serializer type")
)

// Serializer encodes and decodes the entities persisted by the
// certificate index and the CLI output formats.
type Serializer[E any] interface {
	Serialize(entity E) ([]byte, error)
	Deserialize(data []byte, e any) error
	Type() SerializerType
	Name() string
	Extension() string
}

// NewSerializer returns the serializer for the given type.
func NewSerializer[E any](t SerializerType) (Serializer[E], error) {
	switch t {
	case SERIALIZER_JSON:
		return NewJSONSerializer[E](), nil
	case SERIALIZER_YAML:
		return NewYAMLSerializer[E](), nil
	default:
		return nil, ErrInvalidSerializer
	}
}

// ParseSerializer maps a name or file extension to a serializer type,
// ex: "json", ".yaml" or "yml".
func ParseSerializer(name string) (SerializerType, error) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "json":
		return SERIALIZER_JSON, nil
	case "yaml", "yml":
		return SERIALIZER_YAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidSerializer, name)
	}
}
