package manifest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ralt/rpmkit/internal/rpm"
)

// Options returns the builder options the manifest implies.
func (m *Manifest) Options() []rpm.Option {
	var opts []rpm.Option
	if m.Compressor != "" {
		opts = append(opts, rpm.WithCompressor(m.Compressor))
	}
	return opts
}

// Apply sets the manifest's metadata, dependencies and files on b. Relative
// file sources are resolved against baseDir.
func (m *Manifest) Apply(b *rpm.Builder, baseDir string) error {
	b.SetName(m.Name)
	b.SetVersion(m.Version)
	b.SetRelease(m.Release)

	optional := []struct {
		value string
		set   func(string)
	}{
		{m.Summary, b.SetSummary},
		{m.Description, b.SetDescription},
		{m.License, b.SetLicense},
		{m.Group, b.SetGroup},
		{m.OS, b.SetOS},
		{m.Arch, b.SetArch},
		{m.URL, b.SetURL},
		{m.Vendor, b.SetVendor},
		{m.Packager, b.SetPackager},
		{m.Distribution, b.SetDistribution},
		{m.Scripts.PreInstall, b.SetPreInstall},
		{m.Scripts.PostInstall, b.SetPostInstall},
		{m.Scripts.PreUninstall, b.SetPreUninstall},
		{m.Scripts.PostUninstall, b.SetPostUninstall},
	}
	for _, o := range optional {
		if o.value != "" {
			o.set(o.value)
		}
	}

	relations := []struct {
		kind string
		deps []Dependency
		add  func(name, version string, flags rpm.Sense)
	}{
		{"provides", m.Provides, b.AddProvides},
		{"requires", m.Requires, b.AddRequires},
		{"conflicts", m.Conflicts, b.AddConflicts},
		{"obsoletes", m.Obsoletes, b.AddObsoletes},
	}
	for _, r := range relations {
		for i, d := range r.deps {
			flags, err := rpm.ParseSense(d.Op)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", r.kind, i, err)
			}
			if (d.Version == "") != (flags == rpm.SenseAny) {
				return fmt.Errorf("%s[%d]: op and version go together", r.kind, i)
			}
			r.add(d.Name, d.Version, flags)
		}
	}

	for i, d := range m.Directories {
		mode, err := parseMode(d.Mode, 0755)
		if err != nil {
			return fmt.Errorf("directories[%d]: %w", i, err)
		}
		if err := b.AddDirectory(d.Target, mode); err != nil {
			return err
		}
	}

	for i, f := range m.Files {
		if err := addFile(b, f, baseDir); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
	}

	for _, s := range m.Symlinks {
		if err := b.AddSymlink(s.Target, s.LinkTo); err != nil {
			return err
		}
	}

	for _, c := range m.Changelog {
		date, err := time.Parse(time.DateOnly, c.Date)
		if err != nil {
			return err
		}
		b.AddChangelog(date, c.Author, c.Text)
	}

	return b.Err()
}

func addFile(b *rpm.Builder, f File, baseDir string) error {
	var fb *rpm.FileBuilder
	if f.Source != "" {
		src := f.Source
		if !filepath.IsAbs(src) {
			src = filepath.Join(baseDir, src)
		}
		var err error
		fb, err = b.NewFileFromPath(f.Target, src)
		if err != nil {
			return err
		}
	} else {
		fb = b.NewFile(f.Target, []byte(f.Content))
	}

	if f.Mode != "" {
		mode, err := parseMode(f.Mode, 0)
		if err != nil {
			return err
		}
		fb.Mode(mode)
	}

	var flags rpm.FileFlags
	for _, name := range f.Flags {
		flag, err := rpm.ParseFileFlag(name)
		if err != nil {
			return err
		}
		flags |= flag
	}
	fb.Flags(flags)

	owner, group := f.Owner, f.Group
	if owner == "" {
		owner = "root"
	}
	if group == "" {
		group = "root"
	}
	fb.Owner(owner, group)
	fb.Lang(f.Lang)

	return fb.Build()
}
