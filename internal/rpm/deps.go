package rpm

import (
	"fmt"
	"strings"
)

// Sense is the comparison bitmask of a dependency record.
type Sense uint32

const (
	SenseAny     Sense = 0
	SenseLess    Sense = 0x02
	SenseGreater Sense = 0x04
	SenseEqual   Sense = 0x08
	SensePreReq  Sense = 0x40
	SenseInterp  Sense = 0x100
	SenseRPMLib  Sense = 0x1000000
)

// ParseSense converts a comparison operator such as ">=" into flags. The
// empty string means no version constraint.
func ParseSense(op string) (Sense, error) {
	switch strings.TrimSpace(op) {
	case "":
		return SenseAny, nil
	case "<":
		return SenseLess, nil
	case "<=", "=<":
		return SenseLess | SenseEqual, nil
	case "=", "==":
		return SenseEqual, nil
	case ">=", "=>":
		return SenseGreater | SenseEqual, nil
	case ">":
		return SenseGreater, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", op)
	}
}

// Operator renders the comparison part of s.
func (s Sense) Operator() string {
	switch s & (SenseLess | SenseGreater | SenseEqual) {
	case SenseLess:
		return "<"
	case SenseLess | SenseEqual:
		return "<="
	case SenseEqual:
		return "="
	case SenseGreater | SenseEqual:
		return ">="
	case SenseGreater:
		return ">"
	default:
		return ""
	}
}

// Dependency is one provides, requires, conflicts or obsoletes record.
type Dependency struct {
	Name    string
	Version string
	Flags   Sense
}

// String renders the record the way rpm -q --requires does.
func (d Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}
	return fmt.Sprintf("%s %s %s", d.Name, d.Flags.Operator(), d.Version)
}

// relation groups the three parallel header arrays of one dependency kind.
type relation struct {
	name    Tag
	version Tag
	flags   Tag
}

var (
	provides  = relation{TagProvideName, TagProvideVersion, TagProvideFlags}
	requires  = relation{TagRequireName, TagRequireVersion, TagRequireFlags}
	conflicts = relation{TagConflictName, TagConflictVersion, TagConflictFlags}
	obsoletes = relation{TagObsoleteName, TagObsoleteVersion, TagObsoleteFlags}
)

func (r relation) add(t *IndexTable, d Dependency) error {
	if err := t.AddOrAppend(r.name, Strings{d.Name}); err != nil {
		return err
	}
	if err := t.AddOrAppend(r.version, Strings{d.Version}); err != nil {
		return err
	}
	return t.AddOrAppend(r.flags, Int32s{uint32(d.Flags)})
}

func (r relation) has(t *IndexTable, name string) bool {
	return t.ContainsValue(r.name, Strings{name})
}

func (r relation) list(t *IndexTable) ([]Dependency, error) {
	if !t.Has(r.name) {
		return nil, nil
	}
	names, err := t.StringArray(r.name)
	if err != nil {
		return nil, err
	}
	versions, err := t.StringArray(r.version)
	if err != nil {
		return nil, err
	}
	flags, err := t.Int32Array(r.flags)
	if err != nil {
		return nil, err
	}
	if len(versions) != len(names) || len(flags) != len(names) {
		return nil, newError(ErrInvalidValue, r.name.Name, "%d names, %d versions, %d flags", len(names), len(versions), len(flags))
	}

	deps := make([]Dependency, len(names))
	for i := range names {
		deps[i] = Dependency{Name: names[i], Version: versions[i], Flags: Sense(flags[i])}
	}
	return deps, nil
}

// FileFlags marks the role of a packaged file.
type FileFlags uint32

const (
	FileConfig    FileFlags = 1 << 0
	FileDoc       FileFlags = 1 << 1
	FileMissingOK FileFlags = 1 << 3
	FileNoReplace FileFlags = 1 << 4
	FileGhost     FileFlags = 1 << 6
	FileLicense   FileFlags = 1 << 7
	FileReadme    FileFlags = 1 << 8
)

// ParseFileFlag converts a flag name as used in manifests.
func ParseFileFlag(name string) (FileFlags, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "config":
		return FileConfig, nil
	case "doc":
		return FileDoc, nil
	case "missingok":
		return FileMissingOK, nil
	case "noreplace":
		return FileNoReplace, nil
	case "ghost":
		return FileGhost, nil
	case "license":
		return FileLicense, nil
	case "readme":
		return FileReadme, nil
	default:
		return 0, fmt.Errorf("unknown file flag %q", name)
	}
}
