package scanner

import (
	"context"
	"os"
)

// PackageType represents the type of package
type PackageType int

const (
	TypeUnknown PackageType = iota
	TypeRpm
)

// String returns the string representation of PackageType
func (pt PackageType) String() string {
	switch pt {
	case TypeRpm:
		return "rpm"
	default:
		return "unknown"
	}
}

// EntryType is the kind of a staged filesystem entry
type EntryType int

const (
	EntryFile EntryType = iota
	EntryDir
	EntrySymlink
)

// String returns the string representation of EntryType
func (et EntryType) String() string {
	switch et {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	case EntrySymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// StagedEntry is a file found under a staging root, with the absolute
// path it will be installed at
type StagedEntry struct {
	Path   string
	Target string
	Type   EntryType
	Mode   os.FileMode
	Size   int64
	LinkTo string
}

// Scanner collects the entries of a staging tree
type Scanner interface {
	// Scan walks root and maps every entry below it under prefix
	Scan(ctx context.Context, root, prefix string) ([]StagedEntry, error)
}
