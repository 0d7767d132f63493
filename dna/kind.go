package dna

// Kind classifies a type by how its bytes are interpreted.
type Kind uint8

const (
	KindOpaque Kind = iota // unknown non-struct type, copied only when identical
	KindStruct
	KindVoid
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
)

var kindNames = [...]string{
	KindOpaque:  "opaque",
	KindStruct:  "struct",
	KindVoid:    "void",
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Size returns the byte size of a primitive kind, or 0 for struct, opaque and void.
func (k Kind) Size() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	}
	return 0
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool { return k >= KindInt8 && k <= KindUint64 }

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	return k == KindInt8 || k == KindInt16 || k == KindInt32 || k == KindInt64
}

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool { return k == KindFloat32 || k == KindFloat64 }

// IsNumeric reports whether k is an integer or floating-point kind.
func (k Kind) IsNumeric() bool { return k.IsInteger() || k.IsFloat() }

// primitives maps the basic type names understood in layout tables to kinds.
// "long" is fixed at 4 bytes, matching how layouts were recorded historically;
// 64-bit integers use int64_t/uint64_t.
var primitives = map[string]Kind{
	"char":     KindInt8,
	"uchar":    KindUint8,
	"short":    KindInt16,
	"ushort":   KindUint16,
	"int":      KindInt32,
	"uint":     KindUint32,
	"long":     KindInt32,
	"ulong":    KindUint32,
	"float":    KindFloat32,
	"double":   KindFloat64,
	"void":     KindVoid,
	"int8_t":   KindInt8,
	"uint8_t":  KindUint8,
	"int16_t":  KindInt16,
	"uint16_t": KindUint16,
	"int32_t":  KindInt32,
	"uint32_t": KindUint32,
	"int64_t":  KindInt64,
	"uint64_t": KindUint64,
	"bool":     KindUint8,
	"i8":       KindInt8,
	"u8":       KindUint8,
	"i16":      KindInt16,
	"u16":      KindUint16,
	"i32":      KindInt32,
	"u32":      KindUint32,
	"i64":      KindInt64,
	"u64":      KindUint64,
	"f32":      KindFloat32,
	"f64":      KindFloat64,
}

// PrimitiveKind returns the kind of a basic type name.
func PrimitiveKind(typeName string) (Kind, bool) {
	k, ok := primitives[typeName]
	return k, ok
}
