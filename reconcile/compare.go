package reconcile

import "slices"

const (
	unvisited uint8 = iota
	visiting
	visited
)

// compare fills r.flags. A struct is Equal only when every member matches in
// name, declarator and type, nested by-value structs are themselves Equal, and
// pointer width and byte order agree where they matter.
func (r *Reconciler) compare() {
	r.flags = make([]CompareFlag, r.old.NumStructs())
	state := make([]uint8, len(r.flags))
	for i := range r.flags {
		r.compareStruct(i, state)
	}
}

func (r *Reconciler) compareStruct(o int, state []uint8) CompareFlag {
	switch state[o] {
	case visited:
		return r.flags[o]
	case visiting:
		return Different
	}
	state[o] = visiting
	f := r.compareLayout(o, state)
	r.flags[o] = f
	state[o] = visited
	return f
}

func (r *Reconciler) compareLayout(o int, state []uint8) CompareFlag {
	if r.toCur[o] < 0 {
		return NotInCurrent
	}
	c := int(r.toCur[o])
	if r.swap || r.old.StructSize(o) != r.cur.StructSize(c) {
		return Different
	}
	om, cm := r.old.Struct(o).Members, r.cur.Struct(c).Members
	if len(om) != len(cm) {
		return Different
	}
	for j := range om {
		on, cn := r.old.ParsedName(int(om[j].Name)), r.cur.ParsedName(int(cm[j].Name))
		if r.old.AliasMemberName(o, j) != r.cur.AliasMemberName(c, j) ||
			on.Pointer != cn.Pointer || on.FuncPointer != cn.FuncPointer ||
			!slices.Equal(on.Dims, cn.Dims) {
			return Different
		}
		ot, ct := int(om[j].Type), int(cm[j].Type)
		if r.old.AliasTypeName(ot) != r.cur.TypeName(ct) {
			return Different
		}
		if on.IsPointer() {
			if r.old.PointerSize() != r.cur.PointerSize() {
				return Different
			}
			continue
		}
		if r.old.TypeKind(ot) != r.cur.TypeKind(ct) || r.old.TypeSize(ot) != r.cur.TypeSize(ct) {
			return Different
		}
		if nested, ok := r.old.StructForType(ot); ok {
			if r.compareStruct(nested, state) != Equal {
				return Different
			}
		}
	}
	return Equal
}
