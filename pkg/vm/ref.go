package vm

import "sync/atomic"

// Ref is a reference-counted handle to an arbitrary payload, the only
// non-primitive value the stack and register banks know how to move
// around. The zero Ref is the null reference and carries no payload.
type Ref struct {
	obj *refObject
}

type refObject struct {
	typeID  int32
	payload any
	count   int32
	destroy func(any)
}

// NewRef wraps payload in a freshly minted Ref with a reference count of
// one. destroy, if non-nil, runs exactly once when the count reaches zero.
func NewRef(typeID int32, payload any, destroy func(any)) Ref {
	return Ref{obj: &refObject{typeID: typeID, payload: payload, count: 1, destroy: destroy}}
}

// IsNull reports whether r holds no payload.
func (r Ref) IsNull() bool {
	return r.obj == nil
}

// TypeID returns the type identifier the ref was created with, or zero for
// a null ref.
func (r Ref) TypeID() int32 {
	if r.obj == nil {
		return 0
	}
	return r.obj.typeID
}

// Payload returns the wrapped value, or nil for a null ref.
func (r Ref) Payload() any {
	if r.obj == nil {
		return nil
	}
	return r.obj.payload
}

// Retain increments r's count and returns r, so callers can write
// dst = Retain(src) at a copy site.
func Retain(r Ref) Ref {
	if r.obj != nil {
		atomic.AddInt32(&r.obj.count, 1)
	}
	return r
}

// Release decrements r's count, running its destructor once the count
// reaches zero. Releasing a null ref is a no-op.
func Release(r Ref) {
	if r.obj == nil {
		return
	}
	if atomic.AddInt32(&r.obj.count, -1) == 0 {
		if r.obj.destroy != nil {
			r.obj.destroy(r.obj.payload)
		}
	}
}

// RetainOrMove transfers *src into *dst, following the move bit carried by
// a register-list entry. On move, dst takes src's count directly and src is
// left null. Otherwise dst gets its own retained reference and src is left
// untouched. Whatever *dst held before the call is released first.
func RetainOrMove(isMove bool, src, dst *Ref) {
	if !dst.IsNull() {
		Release(*dst)
	}
	if isMove {
		*dst = *src
		*src = Ref{}
	} else {
		*dst = Retain(*src)
	}
}
