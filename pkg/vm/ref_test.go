package vm

import "testing"

func TestRefRetainRelease(t *testing.T) {
	destroyed := false
	r := NewRef(1, "payload", func(any) { destroyed = true })

	r2 := Retain(r)
	Release(r)
	if destroyed {
		t.Fatalf("destructor ran while a retained copy was still live")
	}

	Release(r2)
	if !destroyed {
		t.Fatalf("destructor did not run after the last reference was released")
	}
}

func TestRefReleaseNull(t *testing.T) {
	var r Ref
	Release(r) // must not panic
	if !r.IsNull() {
		t.Fatalf("zero Ref should be null")
	}
}

func TestRetainOrMoveMove(t *testing.T) {
	src := NewRef(1, "x", nil)
	var dst Ref

	RetainOrMove(true, &src, &dst)

	if !src.IsNull() {
		t.Fatalf("move should null the source")
	}
	if dst.IsNull() || dst.Payload() != "x" {
		t.Fatalf("move should transfer the payload to the destination")
	}
}

func TestRetainOrMoveRetain(t *testing.T) {
	src := NewRef(1, "x", nil)
	var dst Ref

	RetainOrMove(false, &src, &dst)

	if src.IsNull() {
		t.Fatalf("retain should leave the source intact")
	}
	if dst.IsNull() || dst.Payload() != "x" {
		t.Fatalf("retain should give the destination its own reference")
	}

	destroyed := false
	old := NewRef(2, "old", func(any) { destroyed = true })
	next := NewRef(3, "next", nil)
	RetainOrMove(true, &next, &old)
	if !destroyed {
		t.Fatalf("moving a new value into dst should release whatever dst held before")
	}
	if old.Payload() != "next" {
		t.Fatalf("dst should hold the moved-in payload, got %v", old.Payload())
	}
}
