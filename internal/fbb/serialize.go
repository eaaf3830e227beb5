package fbb

import "encoding/binary"

// Serialize writes the header, relptr block and payload for this builder
// into buf, which must be at least Measure() bytes, and returns the number
// of bytes written. Nested message builders are serialized recursively in
// place, so the whole tree lands in one contiguous blob.
func (b *Builder) Serialize(buf []byte) int {
	layout := computeHeaderLayout(b.schema)

	binary.LittleEndian.PutUint32(buf[layout.tagOffset:], uint32(b.schema.Tag))

	var presence uint64
	optBit := 0

	for i, f := range b.schema.Fields {
		fv := &b.values[i]

		switch {
		case f.Quant != Array && f.Type == TypeInt:
			off := layout.scalarOffset[f.Name]
			binary.LittleEndian.PutUint64(buf[off:], uint64(fv.intVal))
			if f.Quant == Optional {
				if fv.present {
					presence |= 1 << uint(optBit)
				}
				optBit++
			}

		case f.Quant != Array && f.Type == TypeString:
			off := layout.lenOffset[f.Name]
			l := 0
			if fv.present {
				l = len(fv.str)
			}
			binary.LittleEndian.PutUint32(buf[off:], uint32(l))

		case f.Quant == Array:
			off := layout.countOffset[f.Name]
			count := 0
			switch f.Type {
			case TypeInt:
				count = len(fv.intArr)
			case TypeString:
				count = fv.strArray.len()
			case TypeMessage:
				count = fv.msgArray.len()
			}
			binary.LittleEndian.PutUint32(buf[off:], uint32(count))
		}
	}

	if layout.presenceOffset >= 0 {
		binary.LittleEndian.PutUint64(buf[layout.presenceOffset:], presence)
	}

	cursor := layout.payloadOffset

	for i, f := range b.schema.Fields {
		if !f.HasRelptr() {
			continue
		}
		fv := &b.values[i]
		relptr := uint32(0)

		switch {
		case f.Quant != Array && f.Type == TypeString:
			if fv.present {
				relptr = uint32(cursor)
				cursor += copy(buf[cursor:], fv.str)
				cursor = align8(cursor)
			}

		case f.Quant != Array && f.Type == TypeMessage:
			if fv.present && fv.msg != nil {
				relptr = uint32(cursor)
				n := fv.msg.Serialize(buf[cursor:])
				cursor = align8(cursor + n)
			}

		case f.Quant == Array && f.Type == TypeInt:
			if fv.present {
				relptr = uint32(cursor)
				for _, v := range fv.intArr {
					binary.LittleEndian.PutUint64(buf[cursor:], uint64(v))
					cursor += 8
				}
				cursor = align8(cursor)
			}

		case f.Quant == Array && f.Type == TypeString:
			if fv.present {
				relptr = uint32(cursor)
				n := fv.strArray.len()
				tableStart := cursor
				cursor += n * 8
				for i := 0; i < n; i++ {
					s := fv.strArray.at(i)
					entryOff := cursor
					cursor += copy(buf[cursor:], s)
					binary.LittleEndian.PutUint32(buf[tableStart+i*8:], uint32(entryOff))
					binary.LittleEndian.PutUint32(buf[tableStart+i*8+4:], uint32(len(s)))
				}
				cursor = align8(cursor)
			}

		case f.Quant == Array && f.Type == TypeMessage:
			if fv.present {
				relptr = uint32(cursor)
				n := fv.msgArray.len()
				tableStart := cursor
				cursor += n * 4
				cursor = align8(cursor)
				for i := 0; i < n; i++ {
					m := fv.msgArray.at(i)
					entryOff := cursor
					if m != nil {
						cursor = align8(cursor + m.Serialize(buf[cursor:]))
					}
					binary.LittleEndian.PutUint32(buf[tableStart+i*4:], uint32(entryOff))
				}
				cursor = align8(cursor)
			}
		}

		relptrBlockOff := layout.relptrOffset + b.schema.RelptrIndex(f.Name)*4
		binary.LittleEndian.PutUint32(buf[relptrBlockOff:], relptr)
	}

	return cursor
}
