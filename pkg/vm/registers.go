package vm

import "encoding/binary"

// Bit layout of a single register-list entry. The top bit marks a
// reference-typed operand; when set, the next bit marks that the operand
// should be moved rather than retained, and the remaining 14 bits hold the
// ordinal. Primitive operands use all but the top bit for the ordinal, so
// i32 register lists never need masking against move semantics.
const (
	RefTypeBit     uint16 = 0x8000
	RefMoveBit     uint16 = 0x4000
	RefOrdinalMask uint16 = 0x3FFF
	I32OrdinalMask uint16 = 0x7FFF
)

// RegisterList is a sequence of encoded register operands: the inputs to a
// call, or the results of one, in the order the callee's signature expects.
type RegisterList struct {
	Registers []uint16
}

// Size returns the number of operands in the list. A nil list has size
// zero, matching the convention that "no registers" and "empty list" mean
// the same thing to callers.
func (l *RegisterList) Size() int {
	if l == nil {
		return 0
	}
	return len(l.Registers)
}

// EncodeRegisterList serializes l as a length-prefixed run of little-endian
// 16-bit ordinals, the wire form modules embed in compiled dispatch tables.
func EncodeRegisterList(l *RegisterList) []byte {
	n := l.Size()
	buf := make([]byte, 2+2*n)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(n))
	for i, r := range l.Registers {
		binary.LittleEndian.PutUint16(buf[2+2*i:4+2*i], r)
	}
	return buf
}

// DecodeRegisterList parses the form written by EncodeRegisterList.
func DecodeRegisterList(buf []byte) (*RegisterList, error) {
	if len(buf) < 2 {
		return nil, newError(KindInvalidArgument, "register list buffer too short")
	}
	size := int(binary.LittleEndian.Uint16(buf[0:2]))
	need := 2 + 2*size
	if len(buf) < need {
		return nil, newError(KindInvalidArgument, "register list buffer truncated: want %d bytes, have %d", need, len(buf))
	}
	regs := make([]uint16, size)
	for i := range regs {
		regs[i] = binary.LittleEndian.Uint16(buf[2+2*i : 4+2*i])
	}
	return &RegisterList{Registers: regs}, nil
}

// Registers is a live view over one frame's register storage: the i32 and
// ref banks plus the ordinal masks to apply when indexing into them. It is
// re-derived from the stack's arenas at each use site rather than cached,
// so it stays valid across arena growth.
type Registers struct {
	I32     []int32
	I32Mask uint16
	Ref     []Ref
	RefMask uint16
}

func roundUpPow2(n int) int {
	if n <= 0 {
		return 0
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// remapABI copies src's operands, named by srcList and addressed against
// src's own ordinal space, into dst starting at ordinal zero of each bank,
// left-aligned in encounter order. This is how a caller's arbitrarily
// numbered argument registers become a callee's tightly packed 0..N frame.
func remapABI(src Registers, srcList *RegisterList, dst Registers) {
	var i32Ord, refOrd uint16
	for _, reg := range srcList.Registers {
		if reg&RefTypeBit != 0 {
			isMove := reg&RefMoveBit != 0
			srcOrd := (reg & RefOrdinalMask) & src.RefMask
			dstOrd := refOrd & dst.RefMask
			refOrd++
			RetainOrMove(isMove, &src.Ref[srcOrd], &dst.Ref[dstOrd])
		} else {
			srcOrd := (reg & I32OrdinalMask) & src.I32Mask
			dstOrd := i32Ord & dst.I32Mask
			i32Ord++
			dst.I32[dstOrd] = src.I32[srcOrd]
		}
	}
}

// remapPaired transfers src's operands named by srcList one-to-one into
// dst's operands named by dstList: the Nth entry of srcList feeds the Nth
// entry of dstList. The two lists must have equal length, and the type bit
// of paired entries is expected to agree (it is trusted, not re-checked).
func remapPaired(src Registers, srcList *RegisterList, dst Registers, dstList *RegisterList) error {
	if dstList == nil {
		return nil
	}
	if len(srcList.Registers) != len(dstList.Registers) {
		return newError(KindInternal, "register list size mismatch in paired remap: %d vs %d", len(srcList.Registers), len(dstList.Registers))
	}
	for i, sreg := range srcList.Registers {
		dreg := dstList.Registers[i]
		if sreg&RefTypeBit != 0 {
			isMove := sreg&RefMoveBit != 0
			srcOrd := (sreg & RefOrdinalMask) & src.RefMask
			dstOrd := (dreg & RefOrdinalMask) & dst.RefMask
			RetainOrMove(isMove, &src.Ref[srcOrd], &dst.Ref[dstOrd])
		} else {
			srcOrd := (sreg & I32OrdinalMask) & src.I32Mask
			dstOrd := (dreg & I32OrdinalMask) & dst.I32Mask
			dst.I32[dstOrd] = src.I32[srcOrd]
		}
	}
	return nil
}
