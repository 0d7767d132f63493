package dna

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Names are stored as 8-bit strings. ASCII passes through; anything else is
// treated as ISO-8859-1 so every byte value round-trips through Encode.

func decodeName(b []byte) (string, error) {
	if isASCII(b) {
		return string(b), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func encodeName(s string) ([]byte, error) {
	if isASCII([]byte(s)) {
		return []byte(s), nil
	}
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("name %q is not representable in ISO-8859-1: %w", s, err)
	}
	return encoded, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
