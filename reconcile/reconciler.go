package reconcile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/joshuapare/dnakit/alloc"
	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/internal/buf"
)

// ErrNotInCurrent is returned by ReconcileBlock for a stored struct that has
// no counterpart in the current layout table.
var ErrNotInCurrent = errors.New("reconcile: struct not in current layout")

// maxDepth bounds by-value struct nesting. Decoded tables cannot nest without
// limit, but tables decoded WithoutSizeCheck are not proven acyclic.
const maxDepth = 64

// CompareFlag summarizes how a stored struct relates to the current layout.
type CompareFlag uint8

const (
	// NotInCurrent means the current table has no struct of that name.
	NotInCurrent CompareFlag = iota
	// Equal means identical layout: same members, types, sizes, pointer
	// width and byte order. Such structs are copied whole.
	Equal
	// Different means the struct is converted field by field.
	Different
)

func (f CompareFlag) String() string {
	switch f {
	case NotInCurrent:
		return "not-in-current"
	case Equal:
		return "equal"
	case Different:
		return "different"
	}
	return "unknown"
}

// Result is one successful reconciliation. Data is owned by the caller.
type Result struct {
	Data     []byte
	Warnings []Warning
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithScratchChunk sets the chunk size of the scratch arena that outputs are
// assembled in.
func WithScratchChunk(n int) Option {
	return func(r *Reconciler) { r.chunk = n }
}

// Reconciler converts struct instances stored under one layout table into the
// layout of another. It caches per-pair field plans and reuses one scratch
// arena, so a Reconciler must not be used from several goroutines at once.
// Both tables may be shared freely.
type Reconciler struct {
	old, cur *dna.SDNA
	swap     bool

	log   *slog.Logger
	chunk int

	flags []CompareFlag
	toCur []int32 // stored struct -> current struct, -1 when absent
	plans map[[2]int]*structPlan

	scratch  *alloc.Arena
	top      string
	path     []pathElem
	warnings []Warning
}

type pathElem struct {
	name string
	idx  int // array element, -1 for scalars
}

// fieldPlan pairs one current member with the stored member of the same name.
type fieldPlan struct {
	cur, old        dna.Member
	curOff, curSize int
	oldOff, oldSize int
	name            string
}

type structPlan struct {
	fields []fieldPlan
}

// New prepares a reconciler from the stored table old to the current table.
// Struct correspondence and compare flags are computed eagerly.
func New(old, current *dna.SDNA, opts ...Option) *Reconciler {
	r := &Reconciler{
		old:   old,
		cur:   current,
		swap:  old.Order() != current.Order(),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		chunk: alloc.DefaultChunkSize,
		plans: make(map[[2]int]*structPlan),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scratch = alloc.NewArena("reconcile", r.chunk, alloc.WithZeroFill())

	r.toCur = make([]int32, old.NumStructs())
	for i := range r.toCur {
		r.toCur[i] = -1
		if c, ok := current.Resolve(old.AliasStructName(i)); ok {
			r.toCur[i] = int32(c)
		}
	}
	r.compare()

	var equal, different, missing int
	for _, f := range r.flags {
		switch f {
		case Equal:
			equal++
		case Different:
			different++
		default:
			missing++
		}
	}
	r.log.Debug("reconciler ready",
		"stored_structs", old.NumStructs(),
		"current_structs", current.NumStructs(),
		"equal", equal, "different", different, "not_in_current", missing,
		"swap", r.swap,
		"stored_ptr", old.PointerSize(), "current_ptr", current.PointerSize())
	return r
}

// Stored returns the table data is converted from.
func (r *Reconciler) Stored() *dna.SDNA { return r.old }

// Current returns the table data is converted to.
func (r *Reconciler) Current() *dna.SDNA { return r.cur }

// Counterpart returns the current struct matching stored struct i.
func (r *Reconciler) Counterpart(i int) (int, bool) {
	if i < 0 || i >= len(r.toCur) || r.toCur[i] < 0 {
		return 0, false
	}
	return int(r.toCur[i]), true
}

// CompareFlags returns the flag of every stored struct, indexed by position.
func (r *Reconciler) CompareFlags() []CompareFlag {
	return slices.Clone(r.flags)
}

// Flag returns the compare flag of stored struct i.
func (r *Reconciler) Flag(i int) CompareFlag {
	if i < 0 || i >= len(r.flags) {
		return NotInCurrent
	}
	return r.flags[i]
}

// Reconcile converts one instance of stored struct oldStruct, read from the
// start of src, into current struct curStruct. Fields only the current layout
// has are zero; fields only the stored layout has are dropped. On error no
// output is returned.
func (r *Reconciler) Reconcile(oldStruct, curStruct int, src []byte) (Result, error) {
	if err := r.checkPair(oldStruct, curStruct); err != nil {
		return Result{}, err
	}
	return r.run(oldStruct, curStruct, 1, src)
}

// ReconcileBlock converts count consecutive instances of stored struct
// oldStruct into its current counterpart.
func (r *Reconciler) ReconcileBlock(oldStruct, count int, src []byte) (Result, error) {
	if oldStruct < 0 || oldStruct >= r.old.NumStructs() {
		return Result{}, fmt.Errorf("reconcile: stored struct %d of %d: %w", oldStruct, r.old.NumStructs(), dna.ErrCorruptIndex)
	}
	c, ok := r.Counterpart(oldStruct)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotInCurrent, r.old.StructName(oldStruct))
	}
	return r.run(oldStruct, c, count, src)
}

func (r *Reconciler) checkPair(o, c int) error {
	if o < 0 || o >= r.old.NumStructs() {
		return fmt.Errorf("reconcile: stored struct %d of %d: %w", o, r.old.NumStructs(), dna.ErrCorruptIndex)
	}
	if c < 0 || c >= r.cur.NumStructs() {
		return fmt.Errorf("reconcile: current struct %d of %d: %w", c, r.cur.NumStructs(), dna.ErrCorruptIndex)
	}
	return nil
}

func (r *Reconciler) run(o, c, count int, src []byte) (Result, error) {
	if count < 0 {
		return Result{}, fmt.Errorf("reconcile: negative count %d: %w", count, dna.ErrCorruptIndex)
	}
	oldSize, curSize := r.old.StructSize(o), r.cur.StructSize(c)
	need, ok := buf.MulOverflowSafe(oldSize, count)
	if !ok || len(src) < need {
		return Result{}, fmt.Errorf("reconcile: %s x%d needs %d bytes, have %d: %w",
			r.old.StructName(o), count, oldSize*count, len(src), dna.ErrTruncated)
	}
	outSize, ok := buf.MulOverflowSafe(curSize, count)
	if !ok {
		return Result{}, fmt.Errorf("reconcile: %s x%d: output size overflows: %w", r.cur.StructName(c), count, dna.ErrCorruptIndex)
	}

	defer r.scratch.Reset()
	r.top = r.cur.StructName(c)
	r.path = r.path[:0]
	r.warnings = nil

	dst, err := r.scratch.Acquire(outSize, 0)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: scratch: %w", err)
	}
	for i := 0; i < count; i++ {
		d := dst[i*curSize : (i+1)*curSize]
		s := src[i*oldSize : (i+1)*oldSize]
		if err := r.structInto(d, c, s, o, 0); err != nil {
			r.warnings = nil
			return Result{}, err
		}
	}

	res := Result{Data: slices.Clone(dst), Warnings: r.warnings}
	if res.Data == nil {
		res.Data = []byte{}
	}
	r.warnings = nil
	return res, nil
}

func (r *Reconciler) structInto(dst []byte, c int, src []byte, o int, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("reconcile: %s: struct nesting deeper than %d: %w", r.where(), maxDepth, dna.ErrFormat)
	}
	if r.flags[o] == Equal && int(r.toCur[o]) == c {
		copy(dst, src)
		return nil
	}
	p, err := r.plan(o, c)
	if err != nil {
		return err
	}
	for i := range p.fields {
		f := &p.fields[i]
		r.path = append(r.path, pathElem{name: f.name, idx: -1})
		err := r.member(dst[f.curOff:f.curOff+f.curSize], f.cur, src[f.oldOff:f.oldOff+f.oldSize], f.old, depth)
		r.path = r.path[:len(r.path)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

// plan matches the members of current struct c to stored struct o. Members
// that do not fit inside their struct (possible only in tables decoded
// WithoutSizeCheck) fail with ErrFormat.
func (r *Reconciler) plan(o, c int) (*structPlan, error) {
	key := [2]int{o, c}
	if p, ok := r.plans[key]; ok {
		return p, nil
	}
	oldOffs := r.old.MemberOffsets(o)
	curOffs := r.cur.MemberOffsets(c)
	oldMembers := r.old.Struct(o).Members
	oldLimit, curLimit := r.old.StructSize(o), r.cur.StructSize(c)
	p := &structPlan{}
	for j, cm := range r.cur.Struct(c).Members {
		name := r.cur.AliasMemberName(c, j)
		k, ok := r.old.MemberIndex(o, name)
		if !ok {
			continue
		}
		om := oldMembers[k]
		f := fieldPlan{
			cur:     cm,
			old:     om,
			curOff:  curOffs[j],
			curSize: r.cur.MemberSize(cm),
			oldOff:  oldOffs[k],
			oldSize: r.old.MemberSize(om),
			name:    name,
		}
		if f.oldOff+f.oldSize > oldLimit {
			return nil, fmt.Errorf("reconcile: stored %s.%s ends at byte %d of %d: %w",
				r.old.StructName(o), name, f.oldOff+f.oldSize, oldLimit, dna.ErrFormat)
		}
		if f.curOff+f.curSize > curLimit {
			return nil, fmt.Errorf("reconcile: current %s.%s ends at byte %d of %d: %w",
				r.cur.StructName(c), name, f.curOff+f.curSize, curLimit, dna.ErrFormat)
		}
		p.fields = append(p.fields, f)
	}
	r.plans[key] = p
	return p, nil
}

func (r *Reconciler) member(dst []byte, cm dna.Member, src []byte, om dna.Member, depth int) error {
	on, cn := r.old.ParsedName(int(om.Name)), r.cur.ParsedName(int(cm.Name))
	n := min(on.ArrayLen, cn.ArrayLen)

	if on.IsPointer() || cn.IsPointer() {
		if on.IsPointer() != cn.IsPointer() {
			r.warn(CatIncompatible, om, cm, "pointer and value")
			return nil
		}
		r.pointers(dst, src, n, om, cm)
		r.dropped(on, cn, om, cm)
		return nil
	}

	oldType, curType := int(om.Type), int(cm.Type)
	from, to := r.old.TypeKind(oldType), r.cur.TypeKind(curType)
	oldName, curName := r.old.AliasTypeName(oldType), r.cur.TypeName(curType)

	switch {
	case from == dna.KindStruct && to == dna.KindStruct:
		if oldName != curName {
			r.warn(CatIncompatible, om, cm, "different struct types")
			return nil
		}
		// Nested types go through each table's struct index like block structs.
		os, okOld := r.old.Resolve(r.old.TypeName(oldType))
		cs, okCur := r.cur.Resolve(curName)
		if !okOld || !okCur {
			return fmt.Errorf("reconcile: %s: nested struct %s not indexed: %w", r.where(), curName, dna.ErrCorruptIndex)
		}
		osz, csz := r.old.StructSize(os), r.cur.StructSize(cs)
		for i := 0; i < n; i++ {
			if cn.ArrayLen > 1 {
				r.path[len(r.path)-1].idx = i
			}
			if err := r.structInto(dst[i*csz:(i+1)*csz], cs, src[i*osz:(i+1)*osz], os, depth+1); err != nil {
				return err
			}
		}
		r.path[len(r.path)-1].idx = -1
		r.dropped(on, cn, om, cm)

	case oldName == "char" && curName == "char" && on.ArrayLen > 1 && cn.ArrayLen > 1:
		r.text(dst, src, on, cn, om, cm)

	case from.IsNumeric() && to.IsNumeric():
		if from == to {
			copyElements(dst, src, n, from.Size(), r.swap)
		} else {
			r.numbers(dst, src, n, from, to, om, cm)
		}
		r.dropped(on, cn, om, cm)

	case from == dna.KindOpaque && to == dna.KindOpaque && oldName == curName &&
		r.old.TypeSize(oldType) == r.cur.TypeSize(curType):
		copyElements(dst, src, n, r.old.TypeSize(oldType), false)
		r.dropped(on, cn, om, cm)

	default:
		r.warn(CatIncompatible, om, cm, fmt.Sprintf("no conversion from %s to %s", from, to))
	}
	return nil
}

func (r *Reconciler) numbers(dst, src []byte, n int, from, to dna.Kind, om, cm dna.Member) {
	fs, ts := from.Size(), to.Size()
	var first Category
	lossy := 0
	for i := 0; i < n; i++ {
		v := readScalar(src[i*fs:], from, r.old.Order())
		if cat := writeScalar(dst[i*ts:], to, r.cur.Order(), v); cat != "" {
			if lossy == 0 {
				first = cat
			}
			lossy++
		}
	}
	if lossy > 0 {
		r.warn(first, om, cm, elements(lossy, n))
	}
}

func (r *Reconciler) pointers(dst, src []byte, n int, om, cm dna.Member) {
	ow, cw := r.old.PointerSize(), r.cur.PointerSize()
	folded := 0
	for i := 0; i < n; i++ {
		addr := buf.Uint(src[i*ow:], ow, r.old.Order())
		v, ok := convertAddress(addr, ow, cw)
		if !ok {
			folded++
		}
		buf.PutUint(dst[i*cw:], cw, v, r.cur.Order())
	}
	if folded > 0 {
		r.warn(CatPointerFold, om, cm, elements(folded, n))
	}
}

// text copies a char array one string at a time: the last dimension is the
// string length, any outer dimensions count strings. Every string that is
// cut stays NUL-terminated.
func (r *Reconciler) text(dst, src []byte, on, cn dna.Name, om, cm dna.Member) {
	oldLen, curLen := on.Dims[len(on.Dims)-1], cn.Dims[len(cn.Dims)-1]
	oldRows, curRows := on.ArrayLen/oldLen, cn.ArrayLen/curLen
	rows := min(oldRows, curRows)
	cut := 0
	for i := 0; i < rows; i++ {
		if copyString(dst[i*curLen:(i+1)*curLen], src[i*oldLen:(i+1)*oldLen]) {
			cut++
		}
	}
	switch {
	case cut > 0 && rows == 1:
		r.warn(CatStringTruncated, om, cm, fmt.Sprintf("cut to %d bytes", curLen-1))
	case cut > 0:
		r.warn(CatStringTruncated, om, cm, fmt.Sprintf("%d of %d strings cut to %d bytes", cut, rows, curLen-1))
	}
	if oldRows > curRows {
		r.warn(CatArrayTruncated, om, cm, fmt.Sprintf("kept %d of %d strings", curRows, oldRows))
	}
}

// copyString reports whether text was cut to fit dst.
func copyString(dst, src []byte) bool {
	copy(dst, src)
	if len(dst) >= len(src) {
		return false
	}
	end := bytes.IndexByte(src, 0)
	dst[len(dst)-1] = 0
	return end < 0 || end >= len(dst)
}

func (r *Reconciler) dropped(on, cn dna.Name, om, cm dna.Member) {
	if on.ArrayLen > cn.ArrayLen {
		r.warn(CatArrayTruncated, om, cm, fmt.Sprintf("kept %d of %d elements", cn.ArrayLen, on.ArrayLen))
	}
}

func (r *Reconciler) warn(cat Category, om, cm dna.Member, detail string) {
	r.warnings = append(r.warnings, Warning{
		Category: cat,
		Struct:   r.top,
		Field:    r.where(),
		From:     r.old.TypeName(int(om.Type)) + " " + r.old.Name(int(om.Name)),
		To:       r.cur.TypeName(int(cm.Type)) + " " + r.cur.Name(int(cm.Name)),
		Detail:   detail,
	})
}

func (r *Reconciler) where() string {
	var sb strings.Builder
	for i, e := range r.path {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(e.name)
		if e.idx >= 0 {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(e.idx))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

func elements(k, n int) string {
	if n == 1 {
		return ""
	}
	return fmt.Sprintf("%d of %d elements", k, n)
}
