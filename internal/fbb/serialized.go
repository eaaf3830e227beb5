package fbb

import (
	"encoding/binary"
	"fmt"
)

// Serialized is a zero-copy accessor over a byte slice holding one message
// produced by Builder.Serialize (or found inline inside a parent message's
// payload). Every getter resolves a field by pointer arithmetic over buf;
// nothing is copied or allocated except where a Go string/slice header is
// unavoidable to hand the caller a result.
type Serialized struct {
	schema *Schema
	buf    []byte
	layout *headerLayout
}

// Parse validates that buf begins with schema's tag and is long enough to
// hold schema's fixed header and relptr block, and wraps it for reading.
// This is the one place FBB validates its input, because it is the trust
// boundary where bytes arrive from a frame; every Serialized getter past
// this point treats the bytes as trusted, per the channel's contract.
func Parse(schema *Schema, buf []byte) (*Serialized, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("fbb: buffer too short for a tag: %d bytes", len(buf))
	}
	tag := int32(binary.LittleEndian.Uint32(buf))
	if tag != schema.Tag {
		return nil, fmt.Errorf("fbb: tag mismatch: got %d, want %s (%d)", tag, schema.Name, schema.Tag)
	}
	layout := computeHeaderLayout(schema)
	if len(buf) < layout.payloadOffset {
		return nil, fmt.Errorf("fbb: buffer too short for %s header: %d bytes, need %d", schema.Name, len(buf), layout.payloadOffset)
	}
	return &Serialized{schema: schema, buf: buf, layout: layout}, nil
}

// Tag returns the message's wire tag.
func (s *Serialized) Tag() int32 {
	return int32(binary.LittleEndian.Uint32(s.buf))
}

// PeekTag reads a raw frame's wire tag without knowing its schema yet, so a
// dispatch loop can look the tag up in Schemas before calling Parse.
func PeekTag(buf []byte) (int32, error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("fbb: buffer too short for a tag: %d bytes", len(buf))
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

// ParseAny looks buf's tag up in Schemas and parses it against the matching
// schema, for callers that only know a frame's bytes, not which message type
// it holds.
func ParseAny(buf []byte) (*Serialized, error) {
	tag, err := PeekTag(buf)
	if err != nil {
		return nil, err
	}
	schema, ok := Schemas[tag]
	if !ok {
		return nil, fmt.Errorf("fbb: unknown message tag %d", tag)
	}
	return Parse(schema, buf)
}

// Int returns a required or optional scalar int field's value. For an
// optional field not present, it returns 0; check HasInt first.
func (s *Serialized) Int(name string) int64 {
	idx := s.schema.FieldIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("fbb: %s has no field %q", s.schema.Name, name))
	}
	f := s.schema.Fields[idx]
	if f.Quant == Array || f.Type != TypeInt {
		panic(fmt.Sprintf("fbb: %s.%s is not a scalar int field", s.schema.Name, name))
	}
	off := s.layout.scalarOffset[name]
	return int64(binary.LittleEndian.Uint64(s.buf[off:]))
}

// HasInt reports whether an optional scalar int field is present.
func (s *Serialized) HasInt(name string) bool {
	bit := s.schema.OptionalScalarIndex(name)
	if bit < 0 {
		panic(fmt.Sprintf("fbb: %s.%s is not an optional scalar int field", s.schema.Name, name))
	}
	if s.layout.presenceOffset < 0 {
		return false
	}
	presence := binary.LittleEndian.Uint64(s.buf[s.layout.presenceOffset:])
	return presence&(1<<uint(bit)) != 0
}

func (s *Serialized) relptr(name string) uint32 {
	idx := s.schema.RelptrIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("fbb: %s.%s carries no relptr", s.schema.Name, name))
	}
	off := s.layout.relptrOffset + idx*4
	return binary.LittleEndian.Uint32(s.buf[off:])
}

// HasString reports whether a required-or-optional string field is
// present. A required field is always present; this is mainly useful for
// optional string fields, where absence is a zero relptr.
func (s *Serialized) HasString(name string) bool {
	return s.relptr(name) != 0
}

// StringLen returns the byte length recorded for a string field, valid
// whether or not the field is present (0 when absent).
func (s *Serialized) StringLen(name string) int {
	off, ok := s.layout.lenOffset[name]
	if !ok {
		panic(fmt.Sprintf("fbb: %s.%s is not a scalar string field", s.schema.Name, name))
	}
	return int(binary.LittleEndian.Uint32(s.buf[off:]))
}

// String returns a required or optional string field's value. Absent
// optional fields return "".
func (s *Serialized) String(name string) string {
	rp := s.relptr(name)
	if rp == 0 {
		return ""
	}
	l := s.StringLen(name)
	return string(s.buf[rp : int(rp)+l])
}

// HasMessage reports whether a nested-message field is present.
func (s *Serialized) HasMessage(name string) bool {
	return s.relptr(name) != 0
}

// Message returns a nested-message field's accessor using the supplied
// schema for the sub-message, or ok==false if absent.
func (s *Serialized) Message(name string, sub *Schema) (*Serialized, bool) {
	rp := s.relptr(name)
	if rp == 0 {
		return nil, false
	}
	m, err := Parse(sub, s.buf[rp:])
	if err != nil {
		panic(fmt.Sprintf("fbb: %s.%s: %v", s.schema.Name, name, err))
	}
	return m, true
}

// HasArray reports whether an array field was ever set on the builder that
// produced this message (distinguished from present-but-empty by the
// relptr, not the count).
func (s *Serialized) HasArray(name string) bool {
	return s.relptr(name) != 0
}

// ArrayLen returns an array field's element count, 0 for both absent and
// present-but-empty arrays (use HasArray to tell them apart).
func (s *Serialized) ArrayLen(name string) int {
	off, ok := s.layout.countOffset[name]
	if !ok {
		panic(fmt.Sprintf("fbb: %s.%s is not an array field", s.schema.Name, name))
	}
	return int(binary.LittleEndian.Uint32(s.buf[off:]))
}

// IntArrayAt returns the idx'th element of an array-of-int field.
func (s *Serialized) IntArrayAt(name string, idx int) int64 {
	n := s.ArrayLen(name)
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("fbb: %s.%s[%d] out of range (len %d)", s.schema.Name, name, idx, n))
	}
	rp := s.relptr(name)
	off := int(rp) + idx*8
	return int64(binary.LittleEndian.Uint64(s.buf[off:]))
}

// StringArrayAt returns the idx'th element of an array-of-string field.
func (s *Serialized) StringArrayAt(name string, idx int) string {
	n := s.ArrayLen(name)
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("fbb: %s.%s[%d] out of range (len %d)", s.schema.Name, name, idx, n))
	}
	rp := s.relptr(name)
	entry := int(rp) + idx*8
	strOff := binary.LittleEndian.Uint32(s.buf[entry:])
	strLen := binary.LittleEndian.Uint32(s.buf[entry+4:])
	return string(s.buf[strOff : strOff+strLen])
}

// MessageArrayAt returns the idx'th element of an array-of-message field,
// parsed using the supplied sub-schema.
func (s *Serialized) MessageArrayAt(name string, idx int, sub *Schema) *Serialized {
	n := s.ArrayLen(name)
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("fbb: %s.%s[%d] out of range (len %d)", s.schema.Name, name, idx, n))
	}
	rp := s.relptr(name)
	entry := int(rp) + idx*4
	msgOff := binary.LittleEndian.Uint32(s.buf[entry:])
	m, err := Parse(sub, s.buf[msgOff:])
	if err != nil {
		panic(fmt.Sprintf("fbb: %s.%s[%d]: %v", s.schema.Name, name, idx, err))
	}
	return m
}

// Bytes returns the raw bytes backing this Serialized view.
func (s *Serialized) Bytes() []byte {
	return s.buf
}
