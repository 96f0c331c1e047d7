package models

// BuildConfig contains configuration for building a package
type BuildConfig struct {
	ManifestPath string
	OutputDir    string

	// Staging tree added on top of the manifest's files
	Root   string
	Prefix string

	// Overrides the manifest's compressor when set
	Compressor string

	// Signing
	GPGKeyPath    string
	GPGPassphrase string
	ExportKey     bool
}

// InspectConfig contains configuration for inspecting a package
type InspectConfig struct {
	Path  string
	Dump  bool
	Files bool

	// Limits the dump to these tags, by name
	Tags []string
}
