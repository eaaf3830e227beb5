package fbb

import "github.com/firebuild-go/fbcore/internal/constants"

// align8 rounds n up to the next multiple of constants.ShmqAlignment (8),
// the alignment every relptr and payload region in a Serialized record
// uses.
func align8(n int) int {
	a := constants.ShmqAlignment
	return (n + a - 1) / a * a
}

// headerLayout pins the byte offset of every header subsection for a
// schema. Both Builder.Serialize and Serialized readers compute these
// independently from the same Schema, so they always agree.
type headerLayout struct {
	tagOffset      int
	scalarOffset   map[string]int // offset of each int field's 8-byte slot
	lenOffset      map[string]int // offset of each non-array string field's 4-byte len
	countOffset    map[string]int // offset of each array field's 4-byte count
	presenceOffset int            // offset of the 8-byte optional-scalar presence bitmap
	headerSize     int            // aligned total header size, before the relptr block
	relptrOffset   int            // offset of the relptr block (== headerSize)
	relptrSize     int            // aligned size of the relptr block
	payloadOffset  int            // offset of the payload (== relptrOffset + relptrSize)
}

func computeHeaderLayout(s *Schema) *headerLayout {
	l := &headerLayout{
		scalarOffset: make(map[string]int),
		lenOffset:    make(map[string]int),
		countOffset:  make(map[string]int),
	}

	off := 4 // tag
	l.tagOffset = 0

	for _, f := range s.Fields {
		if f.Quant != Array && f.Type == TypeInt {
			l.scalarOffset[f.Name] = off
			off += 8
		}
	}
	for _, f := range s.Fields {
		if f.Quant != Array && f.Type == TypeString {
			l.lenOffset[f.Name] = off
			off += 4
		}
	}
	for _, f := range s.Fields {
		if f.Quant == Array {
			l.countOffset[f.Name] = off
			off += 4
		}
	}

	if s.NumOptionalScalars() > 0 {
		l.presenceOffset = off
		off += 8
	} else {
		l.presenceOffset = -1
	}

	l.headerSize = align8(off)
	l.relptrOffset = l.headerSize
	l.relptrSize = align8(s.NumRelptrs() * 4)
	l.payloadOffset = l.relptrOffset + l.relptrSize

	return l
}
