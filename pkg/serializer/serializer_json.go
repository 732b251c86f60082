package serializer

import "encoding/json"

type JSONSerializer[E any] struct{}

func NewJSONSerializer[E any]() Serializer[E] {
	return &JSONSerializer[E]{}
}

func (js JSONSerializer[E]) Serialize(entity E) ([]byte, error) {
	return json.MarshalIndent(entity, "", "  ")
}

func (js JSONSerializer[E]) Deserialize(data []byte, e any) error {
	return json.Unmarshal(data, e)
}

func (js JSONSerializer[E]) Type() SerializerType {
	return SERIALIZER_JSON
}

func (js JSONSerializer[E]) Name() string {
	return "json"
}

func (js JSONSerializer[E]) Extension() string {
	return ".json"
}
