// Package manifest describes a package in a YAML or TOML file and applies
// that description to a builder.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk description of one package.
type Manifest struct {
	Name        string `yaml:"name" toml:"name"`
	Version     string `yaml:"version" toml:"version"`
	Release     string `yaml:"release" toml:"release"`
	Summary     string `yaml:"summary" toml:"summary"`
	Description string `yaml:"description" toml:"description"`
	License     string `yaml:"license" toml:"license"`
	Group       string `yaml:"group" toml:"group"`
	OS          string `yaml:"os" toml:"os"`
	Arch        string `yaml:"arch" toml:"arch"`

	URL          string `yaml:"url" toml:"url"`
	Vendor       string `yaml:"vendor" toml:"vendor"`
	Packager     string `yaml:"packager" toml:"packager"`
	Distribution string `yaml:"distribution" toml:"distribution"`

	// Compressor is the payload compressor: gzip (default), xz or zstd.
	Compressor string `yaml:"compressor" toml:"compressor"`

	Scripts Scripts `yaml:"scripts" toml:"scripts"`

	Provides  []Dependency `yaml:"provides" toml:"provides"`
	Requires  []Dependency `yaml:"requires" toml:"requires"`
	Conflicts []Dependency `yaml:"conflicts" toml:"conflicts"`
	Obsoletes []Dependency `yaml:"obsoletes" toml:"obsoletes"`

	Files       []File           `yaml:"files" toml:"files"`
	Directories []Directory      `yaml:"directories" toml:"directories"`
	Symlinks    []Symlink        `yaml:"symlinks" toml:"symlinks"`
	Changelog   []ChangelogEntry `yaml:"changelog" toml:"changelog"`
}

// Scripts holds the shell scriptlets run around installation.
type Scripts struct {
	PreInstall    string `yaml:"pre_install" toml:"pre_install"`
	PostInstall   string `yaml:"post_install" toml:"post_install"`
	PreUninstall  string `yaml:"pre_uninstall" toml:"pre_uninstall"`
	PostUninstall string `yaml:"post_uninstall" toml:"post_uninstall"`
}

// Dependency is a capability with an optional version constraint, such as
// {name: bash, op: ">=", version: "4.0"}.
type Dependency struct {
	Name    string `yaml:"name" toml:"name"`
	Op      string `yaml:"op" toml:"op"`
	Version string `yaml:"version" toml:"version"`
}

// File is a regular file. Its content comes from Source, resolved against
// the manifest's directory, or from the inline Content.
type File struct {
	Source  string   `yaml:"source" toml:"source"`
	Content string   `yaml:"content" toml:"content"`
	Target  string   `yaml:"target" toml:"target"`
	Mode    string   `yaml:"mode" toml:"mode"`
	Owner   string   `yaml:"owner" toml:"owner"`
	Group   string   `yaml:"group" toml:"group"`
	Flags   []string `yaml:"flags" toml:"flags"`
	Lang    string   `yaml:"lang" toml:"lang"`
}

// Directory is a directory owned by the package.
type Directory struct {
	Target string `yaml:"target" toml:"target"`
	Mode   string `yaml:"mode" toml:"mode"`
}

// Symlink is a symbolic link at Target pointing to LinkTo.
type Symlink struct {
	Target string `yaml:"target" toml:"target"`
	LinkTo string `yaml:"link_to" toml:"link_to"`
}

// ChangelogEntry is one changelog item. Date is YYYY-MM-DD.
type ChangelogEntry struct {
	Date   string `yaml:"date" toml:"date"`
	Author string `yaml:"author" toml:"author"`
	Text   string `yaml:"text" toml:"text"`
}

// Load reads a manifest, choosing the decoder from the file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest load failed (%s): %w", path, err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, fmt.Errorf("manifest %s: unknown extension, want .yaml, .yml or .toml", path)
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("manifest parse failed (%s): %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest in the given format, "yaml" or "toml", and
// validates it.
func Parse(data []byte, format string) (*Manifest, error) {
	var m Manifest

	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
	case "toml":
		meta, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	logrus.Debugf("Manifest for %s: %d files, %d directories, %d symlinks", m.Name, len(m.Files), len(m.Directories), len(m.Symlinks))
	return &m, nil
}

// Validate checks the fields a build cannot default.
func (m *Manifest) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(m.Version) == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if strings.TrimSpace(m.Release) == "" {
		errs = append(errs, errors.New("release is required"))
	}

	for i, f := range m.Files {
		if f.Target == "" {
			errs = append(errs, fmt.Errorf("files[%d]: target is required", i))
		}
		if f.Source != "" && f.Content != "" {
			errs = append(errs, fmt.Errorf("files[%d]: source and content are exclusive", i))
		}
		if _, err := parseMode(f.Mode, 0); err != nil {
			errs = append(errs, fmt.Errorf("files[%d]: %w", i, err))
		}
	}
	for i, d := range m.Directories {
		if d.Target == "" {
			errs = append(errs, fmt.Errorf("directories[%d]: target is required", i))
		}
		if _, err := parseMode(d.Mode, 0); err != nil {
			errs = append(errs, fmt.Errorf("directories[%d]: %w", i, err))
		}
	}
	for i, s := range m.Symlinks {
		if s.Target == "" || s.LinkTo == "" {
			errs = append(errs, fmt.Errorf("symlinks[%d]: target and link_to are required", i))
		}
	}
	for i, c := range m.Changelog {
		if _, err := time.Parse(time.DateOnly, c.Date); err != nil {
			errs = append(errs, fmt.Errorf("changelog[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// parseMode reads an octal permission string, returning def when empty.
func parseMode(s string, def uint16) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q", s)
	}
	return uint16(v), nil
}
