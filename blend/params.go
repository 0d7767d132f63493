package blend

// SkipFlags select block categories a load leaves out.
type SkipFlags uint8

const (
	// SkipData leaves out DATA blocks, keeping only top-level records.
	SkipData SkipFlags = 1 << iota
	// SkipUserDef leaves out USER blocks even for startup files.
	SkipUserDef

	SkipNone SkipFlags = 0
	SkipAll            = SkipData | SkipUserDef
)

// Has reports whether every flag in f is set.
func (s SkipFlags) Has(f SkipFlags) bool { return s&f == f }

// UndoDirection tells a relinker whether a load replays an undo step.
type UndoDirection int8

const (
	UndoNone UndoDirection = iota
	UndoUndo
	UndoRedo
)

func (d UndoDirection) String() string {
	switch d {
	case UndoUndo:
		return "undo"
	case UndoRedo:
		return "redo"
	}
	return "none"
}

// ReadParams controls which blocks a load keeps. USER blocks carry user
// preferences and are only kept when loading a startup file.
type ReadParams struct {
	Skip          SkipFlags
	IsStartup     bool
	UndoDirection UndoDirection
}

func (p ReadParams) keepUser() bool { return p.IsStartup && !p.Skip.Has(SkipUserDef) }
