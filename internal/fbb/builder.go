package fbb

import "fmt"

// maxBuilderFields bounds the fixed scratch array every Builder carries
// inline, the same dense-fixed-array-over-map tradeoff FDTable/
// DangerZoneTable make elsewhere: the widest schema in this module
// (Testing) has 10 fields, so 16 leaves headroom without reaching for a
// map. A schema wider than this is a build-time bug, not a runtime one —
// NewBuilder panics immediately rather than silently truncating fields.
const maxBuilderFields = 16

// fieldValue holds whatever a single setter call stored for a field, in
// whichever shape matches that field's (quantifier, type).
type fieldValue struct {
	present bool // set for optional scalars/strings/messages and for required fields once set

	intVal   int64
	intArr   []int64
	str      string
	strArray stringArraySource
	msg      *Builder
	msgArray messageArraySource
}

// Builder accumulates a message's fields before Serialize produces a
// contiguous Serialized record. Field storage is a fixed-size array
// indexed by the field's schema position, not a map: every setter call
// after NewBuilder's single allocation touches storage that already
// exists, so building up a message does no further allocation on its own
// account (a Builder still holds pointers/slices to caller-owned data;
// nothing is copied until Serialize is called).
type Builder struct {
	schema *Schema
	values [maxBuilderFields]fieldValue
}

// NewBuilder stamps the message's tag and returns a zeroed builder for it.
// Tag 0 (TagUnused) must never be passed here.
func NewBuilder(schema *Schema) *Builder {
	if schema.Tag == TagUnused {
		panic("fbb: builder initialized with reserved unused tag")
	}
	if len(schema.Fields) > maxBuilderFields {
		panic(fmt.Sprintf("fbb: %s has %d fields, exceeds maxBuilderFields", schema.Name, len(schema.Fields)))
	}
	return &Builder{schema: schema}
}

// field returns the storage slot for name, already indexed by schema
// position; it is never the point at which new storage is allocated.
func (b *Builder) field(name string) *fieldValue {
	idx := b.schema.FieldIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("fbb: %s has no field %q", b.schema.Name, name))
	}
	return &b.values[idx]
}

func (b *Builder) mustField(name string, quant Quantifier, typ FieldType) Field {
	idx := b.schema.FieldIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("fbb: %s has no field %q", b.schema.Name, name))
	}
	f := b.schema.Fields[idx]
	if f.Quant != quant || f.Type != typ {
		panic(fmt.Sprintf("fbb: %s.%s is not (%v,%v)", b.schema.Name, name, quant, typ))
	}
	return f
}

// SetInt sets a required or optional scalar int field.
func (b *Builder) SetInt(name string, value int64) {
	idx := b.schema.FieldIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("fbb: %s has no field %q", b.schema.Name, name))
	}
	f := b.schema.Fields[idx]
	if f.Quant == Array || f.Type != TypeInt {
		panic(fmt.Sprintf("fbb: %s.%s is not a scalar int field", b.schema.Name, name))
	}
	fv := &b.values[idx]
	fv.intVal = value
	fv.present = true
}

// SetIntArray sets an array-of-int field.
func (b *Builder) SetIntArray(name string, values []int64) {
	b.mustField(name, Array, TypeInt)
	fv := b.field(name)
	fv.intArr = values
	fv.present = true
}

// SetString sets a required or optional string field.
func (b *Builder) SetString(name string, value string) {
	idx := b.schema.FieldIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("fbb: %s has no field %q", b.schema.Name, name))
	}
	f := b.schema.Fields[idx]
	if f.Quant == Array || f.Type != TypeString {
		panic(fmt.Sprintf("fbb: %s.%s is not a scalar string field", b.schema.Name, name))
	}
	fv := &b.values[idx]
	fv.str = value
	fv.present = true
}

// SetStringArray sets a string array field from an already-materialized
// slice, the Go analogue of the upstream ARRAY/CSTRING_VIEW_ARRAY formats.
func (b *Builder) SetStringArray(name string, values []string) {
	b.mustField(name, Array, TypeString)
	fv := b.field(name)
	fv.strArray = sourceFromSlice(values)
	fv.present = true
}

// SetStringArrayCallback sets a string array field whose elements are
// produced lazily, the Go analogue of the upstream callback input format.
func (b *Builder) SetStringArrayCallback(name string, count int, cb StringArrayCallback) {
	b.mustField(name, Array, TypeString)
	fv := b.field(name)
	fv.strArray = sourceFromCallback(count, cb)
	fv.present = true
}

// SetMessage sets a required or optional nested-message field.
func (b *Builder) SetMessage(name string, value *Builder) {
	idx := b.schema.FieldIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("fbb: %s has no field %q", b.schema.Name, name))
	}
	f := b.schema.Fields[idx]
	if f.Quant == Array || f.Type != TypeMessage {
		panic(fmt.Sprintf("fbb: %s.%s is not a scalar message field", b.schema.Name, name))
	}
	fv := &b.values[idx]
	fv.msg = value
	fv.present = value != nil
}

// SetMessageArray sets a nested-message array field from a materialized
// slice of sub-builders.
func (b *Builder) SetMessageArray(name string, values []*Builder) {
	b.mustField(name, Array, TypeMessage)
	fv := b.field(name)
	fv.msgArray = messageSourceFromSlice(values)
	fv.present = true
}

// SetMessageArrayCallback sets a nested-message array field whose elements
// are produced lazily.
func (b *Builder) SetMessageArrayCallback(name string, count int, cb MessageArrayCallback) {
	b.mustField(name, Array, TypeMessage)
	fv := b.field(name)
	fv.msgArray = messageSourceFromCallback(count, cb)
	fv.present = true
}

// HasField reports whether a setter was called for an optional field.
func (b *Builder) HasField(name string) bool {
	idx := b.schema.FieldIndex(name)
	if idx < 0 {
		return false
	}
	return b.values[idx].present
}

// Measure returns the exact byte length Serialize will produce for this
// builder, without writing anything.
func (b *Builder) Measure() int {
	layout := computeHeaderLayout(b.schema)
	size := layout.payloadOffset

	for i, f := range b.schema.Fields {
		fv := &b.values[i]
		switch {
		case f.Quant != Array && f.Type == TypeString:
			if fv.present {
				size = align8(size + len(fv.str))
			}
		case f.Quant != Array && f.Type == TypeMessage:
			if fv.present && fv.msg != nil {
				size = align8(size + fv.msg.Measure())
			}
		case f.Quant == Array && f.Type == TypeInt:
			size = align8(size + len(fv.intArr)*8)
		case f.Quant == Array && f.Type == TypeString:
			n := fv.strArray.len()
			size += n * 8 // (offset,length) table entries
			for i := 0; i < n; i++ {
				size += len(fv.strArray.at(i))
			}
			size = align8(size)
		case f.Quant == Array && f.Type == TypeMessage:
			n := fv.msgArray.len()
			size += n * 4 // offset table
			size = align8(size)
			for i := 0; i < n; i++ {
				m := fv.msgArray.at(i)
				if m != nil {
					size = align8(size + m.Measure())
				}
			}
		}
	}

	return size
}
