package dna

import (
	"fmt"

	"github.com/joshuapare/dnakit/index"
)

// Resolve returns the StructDef position for a struct type name. The literal
// name is tried first; on a miss the name is translated through the rename
// table (current to stored, then stored to current) and tried once more.
func (s *SDNA) Resolve(name string) (int, bool) {
	t, err := s.structIndex()
	if err != nil {
		return 0, false
	}
	if v, ok := t.Lookup(name); ok {
		return int(v), true
	}
	if s.renames == nil {
		return 0, false
	}
	if alt := s.renames.TypeToStored(name); alt != name {
		if v, ok := t.Lookup(alt); ok {
			return int(v), true
		}
	}
	if alt := s.renames.TypeToCurrent(name); alt != name {
		if v, ok := t.Lookup(alt); ok {
			return int(v), true
		}
	}
	return 0, false
}

// MemberIndex returns the position of the member of StructDef i whose
// current-build bare name is name.
func (s *SDNA) MemberIndex(i int, name string) (int, bool) {
	for j, n := range s.ensureAlias().members[i] {
		if n == name {
			return j, true
		}
	}
	return 0, false
}

// IndexStats reports the struct index metrics, building the index if needed.
func (s *SDNA) IndexStats() (index.Stats, error) {
	t, err := s.structIndex()
	if err != nil {
		return index.Stats{}, err
	}
	return t.Stats(), nil
}

func (s *SDNA) structIndex() (*index.Table, error) {
	s.indexOnce.Do(func() {
		t := index.New(func(v uint32) string { return s.StructName(int(v)) })
		for i := range s.structs {
			if err := t.Insert(s.StructName(i), uint32(i)); err != nil {
				s.indexErr = fmt.Errorf("dna: build struct index: %w", err)
				return
			}
		}
		s.index = t
	})
	return s.index, s.indexErr
}
