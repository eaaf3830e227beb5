// Package fbb is the zero-copy message codec used on both the shmq hot
// path and the socket sidechannel. A message is described once, as data, by
// a Schema; the same Schema drives both the Builder (construction) and the
// Serialized accessor (reading), the way the generated C builder/serialized
// pair share one field table in the upstream codec.
package fbb

// Quantifier says how a field participates in a message.
type Quantifier int

const (
	// Required fields are always present on a valid message.
	Required Quantifier = iota
	// Optional scalar/string/message fields carry a presence bit or a zero
	// relptr when absent.
	Optional
	// Array fields carry a count and, when non-scalar, a relptr to a
	// payload table.
	Array
)

// FieldType is the element type of a field.
type FieldType int

const (
	TypeInt FieldType = iota
	TypeString
	TypeMessage
)

// Field describes one schema field in declaration order. Order matters: it
// determines header layout and relptr block order.
type Field struct {
	Name string
	Quant Quantifier
	Type  FieldType
}

// IsScalar reports whether the field is a single (non-array) int.
func (f Field) IsScalar() bool {
	return f.Quant != Array && f.Type == TypeInt
}

// HasRelptr reports whether the field carries a relptr into the payload
// (every array field, and every non-array string or message field).
func (f Field) HasRelptr() bool {
	return f.Quant == Array || f.Type == TypeString || f.Type == TypeMessage
}

// Schema is the fixed, closed description of one message variant.
type Schema struct {
	Tag    int32
	Name   string
	Fields []Field
}

// FieldIndex returns the position of a field by name, or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// OptionalScalarIndex returns the bit position of an optional scalar field
// within the presence bitmap, or -1 if the field isn't an optional scalar.
func (s *Schema) OptionalScalarIndex(name string) int {
	bit := 0
	for _, f := range s.Fields {
		if f.Quant == Optional && f.Type == TypeInt {
			if f.Name == name {
				return bit
			}
			bit++
		}
	}
	return -1
}

// RelptrIndex returns the position of a field within the relptr block, or
// -1 if the field carries no relptr.
func (s *Schema) RelptrIndex(name string) int {
	idx := 0
	for _, f := range s.Fields {
		if f.HasRelptr() {
			if f.Name == name {
				return idx
			}
			idx++
		}
	}
	return -1
}

// NumRelptrs returns the number of relptr-carrying fields in the schema.
func (s *Schema) NumRelptrs() int {
	n := 0
	for _, f := range s.Fields {
		if f.HasRelptr() {
			n++
		}
	}
	return n
}

// NumOptionalScalars returns the number of optional int fields, i.e. the
// number of presence bits the header must carry.
func (s *Schema) NumOptionalScalars() int {
	n := 0
	for _, f := range s.Fields {
		if f.Quant == Optional && f.Type == TypeInt {
			n++
		}
	}
	return n
}

// TagUnused is the reserved zero tag: an uninitialized builder must never
// serialize with this tag.
const TagUnused int32 = 0
