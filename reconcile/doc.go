// Package reconcile converts struct instances stored under one layout table
// into the layout of another, usually the table of the running build.
//
// Members are matched by name after renames are applied. Members only the
// current layout declares read as zero; members only the stored layout has
// are skipped. Matching members of identical type are copied verbatim (byte
// swapped when the tables disagree on byte order); numeric members of
// different types are converted by value; pointers are carried as old
// addresses at the current pointer width.
//
// Conversions that lose information never fail. They produce a Warning and
// the reconciled struct is still returned. Structural problems (truncated
// input, out-of-range struct indices) fail the whole call and return no data.
//
//	r := reconcile.New(stored, current)
//	res, err := r.ReconcileBlock(hdr.StructIndex, int(hdr.Count), payload)
package reconcile
