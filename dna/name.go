package dna

import (
	"fmt"
	"strconv"
	"strings"
)

// Name is a parsed member name. Member names carry their own declarator:
//
//	co          plain field
//	*next       pointer (one '*' per level)
//	co[3]       fixed array
//	mat[4][4]   multi-dimensional array, ArrayLen 16
//	(*func)()   function pointer
type Name struct {
	Raw         string
	Bare        string // identifier without declarator
	Pointer     int    // pointer depth; function pointers count as 1
	FuncPointer bool
	Dims        []int
	ArrayLen    int // product of Dims, 1 when there are none
}

// IsPointer reports whether the member stores an address.
func (n Name) IsPointer() bool { return n.Pointer > 0 }

// ParseName parses a member name declarator.
func ParseName(raw string) (Name, error) {
	n := Name{Raw: raw, ArrayLen: 1}
	s := raw

	if strings.HasPrefix(s, "(*") {
		end := strings.Index(s, ")(")
		if end < 0 || !strings.HasSuffix(s, ")") {
			return Name{}, fmt.Errorf("function pointer %q: missing parameter list", raw)
		}
		n.FuncPointer = true
		n.Pointer = 1
		s = s[2:end]
	} else {
		for strings.HasPrefix(s, "*") {
			n.Pointer++
			s = s[1:]
		}
	}

	bare := s
	if i := strings.IndexByte(s, '['); i >= 0 {
		bare = s[:i]
		dims := s[i:]
		for dims != "" {
			if dims[0] != '[' {
				return Name{}, fmt.Errorf("name %q: unexpected %q after array dimension", raw, dims)
			}
			closeIdx := strings.IndexByte(dims, ']')
			if closeIdx < 0 {
				return Name{}, fmt.Errorf("name %q: unterminated array dimension", raw)
			}
			d, err := strconv.Atoi(dims[1:closeIdx])
			if err != nil || d <= 0 {
				return Name{}, fmt.Errorf("name %q: bad array dimension %q", raw, dims[1:closeIdx])
			}
			n.Dims = append(n.Dims, d)
			n.ArrayLen *= d
			dims = dims[closeIdx+1:]
		}
	}

	if !validIdent(bare) {
		return Name{}, fmt.Errorf("name %q: bad identifier %q", raw, bare)
	}
	n.Bare = bare
	return n, nil
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		case c >= 0x80:
			// Legacy 8-bit identifiers are allowed through.
		default:
			return false
		}
	}
	return true
}
