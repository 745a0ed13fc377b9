package vm

import (
	"reflect"
	"testing"
)

func TestRegisterListEncodeDecodeRoundTrip(t *testing.T) {
	original := &RegisterList{Registers: []uint16{0, 1, 2 | RefTypeBit, 3 | RefTypeBit | RefMoveBit}}

	decoded, err := DecodeRegisterList(EncodeRegisterList(original))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(original.Registers, decoded.Registers) {
		t.Fatalf("round trip mismatch: got %v, want %v", decoded.Registers, original.Registers)
	}
}

func TestDecodeRegisterListTruncated(t *testing.T) {
	buf := EncodeRegisterList(&RegisterList{Registers: []uint16{1, 2, 3}})
	if _, err := DecodeRegisterList(buf[:len(buf)-1]); err == nil {
		t.Fatalf("expected an error decoding a truncated buffer")
	} else if KindOf(err) != KindInvalidArgument {
		t.Fatalf("expected KindInvalidArgument, got %v", KindOf(err))
	}
}

func TestRoundUpPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {255, 256}, {256, 256},
	}
	for _, c := range cases {
		if got := roundUpPow2(c.in); got != c.want {
			t.Errorf("roundUpPow2(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRemapABI(t *testing.T) {
	src := Registers{
		I32:     []int32{10, 20, 30, 40},
		I32Mask: 3,
		Ref:     []Ref{NewRef(1, "a", nil), NewRef(1, "b", nil)},
		RefMask: 1,
	}
	dst := Registers{
		I32:     make([]int32, 2),
		I32Mask: 1,
		Ref:     make([]Ref, 1),
		RefMask: 0,
	}

	// Caller's ordinals 2 (i32) and 1 (ref, moved) feed the callee's 0 and 0.
	list := &RegisterList{Registers: []uint16{2, 1 | RefTypeBit | RefMoveBit}}
	remapABI(src, list, dst)

	if dst.I32[0] != 30 {
		t.Errorf("i32 remap: got %d, want 30", dst.I32[0])
	}
	if dst.Ref[0].Payload() != "b" {
		t.Errorf("ref remap: got %v, want b", dst.Ref[0].Payload())
	}
	if !src.Ref[1].IsNull() {
		t.Errorf("moved source ref should be nulled")
	}
}

func TestRemapPairedSizeMismatch(t *testing.T) {
	src := Registers{I32: []int32{1}, I32Mask: 0}
	dst := Registers{I32: []int32{1}, I32Mask: 0}
	err := remapPaired(src, &RegisterList{Registers: []uint16{0}}, dst, &RegisterList{Registers: []uint16{0, 0}})
	if err == nil {
		t.Fatalf("expected a size mismatch error")
	}
}
