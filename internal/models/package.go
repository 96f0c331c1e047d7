package models

// PackageSummary describes a package file read back from disk
type PackageSummary struct {
	// Core metadata
	Name         string
	Version      string
	Release      string
	Architecture string
	Summary      string
	License      string
	Provides     []string
	Requires     []string
	Conflicts    []string
	Obsoletes    []string

	// Layout
	SignatureOffset int
	HeaderOffset    int
	PayloadOffset   int
	Compressor      string
	Files           []string
	Signed          bool

	// File information
	Filename  string
	Size      int64
	MD5Sum    string
	SHA1Sum   string
	SHA256Sum string
}
