package dna

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes the table in the blob layout Decode reads. A table
// produced by Decode re-encodes to the exact input bytes.
func (s *SDNA) Encode() ([]byte, error) {
	return encodeTables(s.order, s.pointerSize, s.types, s.names, s.structs)
}

func encodeTables(order binary.ByteOrder, ptr int, types []Type, names []string, structs []StructDef) ([]byte, error) {
	if ptr != 4 && ptr != 8 {
		return nil, fmt.Errorf("dna: encode: pointer size %d: %w", ptr, ErrUnsupportedPointerWidth)
	}
	marker := byte(OrderLittle)
	if order == binary.BigEndian {
		marker = OrderBig
	}

	w := &writer{order: order}
	w.bytes([]byte(SignaturePrefix))
	w.bytes([]byte{marker, byte(ptr)})

	w.u32(uint32(len(types)))
	for _, t := range types {
		raw, err := encodeName(t.Name)
		if err != nil {
			return nil, fmt.Errorf("dna: encode type: %w", err)
		}
		if t.Size < 0 || t.Size > 0xFFFF {
			return nil, fmt.Errorf("dna: encode type %q: size %d does not fit in 16 bits: %w", t.Name, t.Size, ErrFormat)
		}
		w.cstring(raw)
		w.u16(uint16(t.Size))
	}

	w.u32(uint32(len(names)))
	for _, n := range names {
		raw, err := encodeName(n)
		if err != nil {
			return nil, fmt.Errorf("dna: encode name: %w", err)
		}
		w.cstring(raw)
	}

	w.u32(uint32(len(structs)))
	for _, sd := range structs {
		if len(sd.Members) > 0xFFFF {
			return nil, fmt.Errorf("dna: encode struct %d: %d members: %w", sd.Type, len(sd.Members), ErrFormat)
		}
		w.u16(sd.Type)
		w.u16(uint16(len(sd.Members)))
		for _, m := range sd.Members {
			w.u16(m.Type)
			w.u16(m.Name)
		}
	}
	return w.b, nil
}

type writer struct {
	b     []byte
	order binary.ByteOrder
	tmp   [4]byte
}

func (w *writer) bytes(p []byte) { w.b = append(w.b, p...) }

func (w *writer) cstring(p []byte) {
	w.b = append(w.b, p...)
	w.b = append(w.b, 0)
}

func (w *writer) u16(v uint16) {
	w.order.PutUint16(w.tmp[:2], v)
	w.b = append(w.b, w.tmp[:2]...)
}

func (w *writer) u32(v uint32) {
	w.order.PutUint32(w.tmp[:4], v)
	w.b = append(w.b, w.tmp[:4]...)
}
