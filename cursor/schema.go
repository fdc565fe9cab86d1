package cursor

import (
	"fmt"
	"time"

	"github.com/nrfta/catalog-go"
)

// fieldSpec defines a single orderable field in a schema.
type fieldSpec[T any] struct {
	name      string      // Field name: "created_at"
	cursorKey string      // Short key for cursor: "c"
	extractor func(T) any // Extract value from item
	isFixed   bool        // Always encoded (tiebreak) vs user-sortable
}

// Schema defines the orderable fields for keyset cursors.
// It keeps cursor encoders and orderings in step by being the single source
// of truth for which fields a cursor carries, and it hides field names behind
// short cursor keys.
//
// Example:
//
//	var productSchema = cursor.NewSchema[*catalog.Product]().
//	    Field(catalog.FieldCreatedAt, "c", func(p *catalog.Product) any { return p.CreatedAt }).
//	    Field(catalog.FieldPrice, "p", func(p *catalog.Product) any { return p.Price }).
//	    FixedField(catalog.FieldID, "i", func(p *catalog.Product) any { return p.ID })
type Schema[T any] struct {
	sortableFields map[string]*fieldSpec[T]
	fixedFields    []*fieldSpec[T]
	allFields      []*fieldSpec[T]
}

// NewSchema creates a new Schema for cursor pagination.
func NewSchema[T any]() *Schema[T] {
	return &Schema[T]{
		sortableFields: make(map[string]*fieldSpec[T]),
	}
}

// Field adds a user-sortable field to the schema.
func (s *Schema[T]) Field(name, cursorKey string, extractor func(T) any) *Schema[T] {
	spec := &fieldSpec[T]{name: name, cursorKey: cursorKey, extractor: extractor}
	s.sortableFields[name] = spec
	s.allFields = append(s.allFields, spec)
	return s
}

// FixedField adds a field that every cursor carries regardless of ordering,
// typically the unique id tiebreak.
func (s *Schema[T]) FixedField(name, cursorKey string, extractor func(T) any) *Schema[T] {
	spec := &fieldSpec[T]{name: name, cursorKey: cursorKey, extractor: extractor, isFixed: true}
	s.fixedFields = append(s.fixedFields, spec)
	s.allFields = append(s.allFields, spec)
	return s
}

// EncoderFor validates orderBy and creates a Spec implementing CursorEncoder.
// Every ordered field must be registered, either sortable or fixed.
func (s *Schema[T]) EncoderFor(orderBy []catalog.OrderBy) (catalog.CursorEncoder[T], error) {
	fields := make([]*fieldSpec[T], 0, len(orderBy))
	for _, ob := range orderBy {
		if spec, ok := s.sortableFields[ob.Field]; ok {
			fields = append(fields, spec)
			continue
		}
		if s.isFixed(ob.Field) {
			continue
		}
		return nil, fmt.Errorf("invalid sort field: %s (not registered in schema)", ob.Field)
	}
	return &Spec[T]{schema: s, sortFields: fields}, nil
}

func (s *Schema[T]) isFixed(name string) bool {
	for _, spec := range s.fixedFields {
		if spec.name == name {
			return true
		}
	}
	return false
}

// Spec is the runtime configuration for cursor encoding/decoding.
// It implements catalog.CursorEncoder for one ordering.
type Spec[T any] struct {
	schema     *Schema[T]
	sortFields []*fieldSpec[T]
}

// Encode implements CursorEncoder.Encode using the schema's short keys.
func (s *Spec[T]) Encode(item T) (*string, error) {
	values := make(map[string]any, len(s.sortFields)+len(s.schema.fixedFields))
	for _, spec := range s.sortFields {
		values[spec.cursorKey] = encodeValue(spec.extractor(item))
	}
	for _, spec := range s.schema.fixedFields {
		values[spec.cursorKey] = encodeValue(spec.extractor(item))
	}
	return encodeValues(values)
}

// Decode implements CursorEncoder.Decode. Short keys are mapped back to
// field names and values are converted to the field's native type.
func (s *Spec[T]) Decode(cursor string) (*catalog.CursorPosition, error) {
	shortKeyValues, err := decodeValues(cursor)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(shortKeyValues))
	for _, spec := range s.schema.allFields {
		raw, ok := shortKeyValues[spec.cursorKey]
		if !ok {
			continue
		}
		v, err := catalog.NormalizeValue(spec.name, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		values[spec.name] = v
	}

	for _, spec := range s.sortFields {
		if _, ok := values[spec.name]; !ok {
			return nil, fmt.Errorf("invalid cursor: missing %s", spec.cursorKey)
		}
	}
	return &catalog.CursorPosition{Values: values}, nil
}

func encodeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// ProductSchema is the cursor schema for catalog listings.
func ProductSchema() *Schema[*catalog.Product] {
	return NewSchema[*catalog.Product]().
		Field(catalog.FieldCreatedAt, "c", func(p *catalog.Product) any { return p.CreatedAt }).
		Field(catalog.FieldPrice, "p", func(p *catalog.Product) any { return p.Price }).
		Field(catalog.FieldName, "n", func(p *catalog.Product) any { return p.Name }).
		FixedField(catalog.FieldID, "i", func(p *catalog.Product) any { return p.ID })
}
