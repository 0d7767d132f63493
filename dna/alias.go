package dna

// Renames records struct and member renames between stored layouts and the
// current build. Stored names are what older files contain; current names are
// what the running build declares. Member renames are keyed by the current
// name of the struct that owns the member.
//
//	r := dna.NewRenames().
//	    RenameType("MVert", "Vertex").
//	    RenameMember("Vertex", "co", "pos")
//
// A Renames is read-only once handed to Decode and may be shared by any
// number of tables and sessions. A nil *Renames renames nothing.
type Renames struct {
	typeToCurrent   map[string]string
	typeToStored    map[string]string
	memberToCurrent map[string]map[string]string
	memberToStored  map[string]map[string]string
}

// NewRenames returns an empty rename set.
func NewRenames() *Renames {
	return &Renames{
		typeToCurrent:   make(map[string]string),
		typeToStored:    make(map[string]string),
		memberToCurrent: make(map[string]map[string]string),
		memberToStored:  make(map[string]map[string]string),
	}
}

// RenameType records that struct type stored is now called current.
func (r *Renames) RenameType(stored, current string) *Renames {
	r.typeToCurrent[stored] = current
	r.typeToStored[current] = stored
	return r
}

// RenameMember records that member stored of struct currentStruct is now
// called current. Names are bare identifiers, without '*' or dimensions.
func (r *Renames) RenameMember(currentStruct, stored, current string) *Renames {
	if r.memberToCurrent[currentStruct] == nil {
		r.memberToCurrent[currentStruct] = make(map[string]string)
		r.memberToStored[currentStruct] = make(map[string]string)
	}
	r.memberToCurrent[currentStruct][stored] = current
	r.memberToStored[currentStruct][current] = stored
	return r
}

// TypeToCurrent maps a stored type name to its current name.
func (r *Renames) TypeToCurrent(stored string) string {
	if r != nil {
		if cur, ok := r.typeToCurrent[stored]; ok {
			return cur
		}
	}
	return stored
}

// TypeToStored maps a current type name to the name older layouts used.
func (r *Renames) TypeToStored(current string) string {
	if r != nil {
		if old, ok := r.typeToStored[current]; ok {
			return old
		}
	}
	return current
}

// MemberToCurrent maps a stored member name of currentStruct to its current name.
func (r *Renames) MemberToCurrent(currentStruct, stored string) string {
	if r != nil {
		if cur, ok := r.memberToCurrent[currentStruct][stored]; ok {
			return cur
		}
	}
	return stored
}

// MemberToStored maps a current member name of currentStruct to its stored name.
func (r *Renames) MemberToStored(currentStruct, current string) string {
	if r != nil {
		if old, ok := r.memberToStored[currentStruct][current]; ok {
			return old
		}
	}
	return current
}

// Len returns the number of type and member renames.
func (r *Renames) Len() int {
	if r == nil {
		return 0
	}
	n := len(r.typeToCurrent)
	for _, m := range r.memberToCurrent {
		n += len(m)
	}
	return n
}

// aliasData holds current-build names for every type and struct member of a
// table, derived from its Renames on first use.
type aliasData struct {
	types   []string   // per type index
	members [][]string // per struct, per member: current bare name
}

func (s *SDNA) ensureAlias() *aliasData {
	s.aliasOnce.Do(func() {
		a := aliasData{
			types:   make([]string, len(s.types)),
			members: make([][]string, len(s.structs)),
		}
		for i, t := range s.types {
			a.types[i] = s.renames.TypeToCurrent(t.Name)
		}
		for i, sd := range s.structs {
			owner := a.types[sd.Type]
			names := make([]string, len(sd.Members))
			for j, m := range sd.Members {
				names[j] = s.renames.MemberToCurrent(owner, s.parsed[m.Name].Bare)
			}
			a.members[i] = names
		}
		s.alias = a
	})
	return &s.alias
}

// AliasTypeName returns the current-build name of type t.
func (s *SDNA) AliasTypeName(t int) string {
	return s.ensureAlias().types[t]
}

// AliasStructName returns the current-build name of StructDef i.
func (s *SDNA) AliasStructName(i int) string {
	return s.ensureAlias().types[s.structs[i].Type]
}

// AliasMemberName returns the current-build bare name of member j of StructDef i.
func (s *SDNA) AliasMemberName(i, j int) string {
	return s.ensureAlias().members[i][j]
}
