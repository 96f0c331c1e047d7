package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ralt/rpmkit/internal/models"
	"github.com/ralt/rpmkit/internal/rpm"
	"github.com/ralt/rpmkit/internal/scanner"
	"github.com/ralt/rpmkit/internal/utils"
	"github.com/spf13/cobra"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var config models.InspectConfig

	cmd := &cobra.Command{
		Use:   "inspect <package.rpm>",
		Short: "Print package metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Path = args[0]
			return runInspect(cmd.OutOrStdout(), &config)
		},
	}

	cmd.Flags().BoolVar(&config.Dump, "dump", false, "List every record of both sections")
	cmd.Flags().BoolVarP(&config.Files, "files", "l", false, "List the installed paths")
	cmd.Flags().StringSliceVarP(&config.Tags, "tag", "t", nil, "With --dump, list only these tags (e.g. NAME, RPMSIGTAG_MD5)")

	return cmd
}

func runInspect(w io.Writer, config *models.InspectConfig) error {
	var only []rpm.Tag
	for _, name := range config.Tags {
		tag, err := rpm.LookupName(name)
		if err != nil {
			return &models.RpmKitError{Type: models.ErrInvalidConfig, Err: err}
		}
		only = append(only, tag)
	}
	if len(only) > 0 {
		config.Dump = true
	}

	if err := scanner.RequireRPM(config.Path); err != nil {
		return &models.RpmKitError{Type: models.ErrPackageRead, Package: config.Path, Err: err}
	}

	p, err := rpm.Open(config.Path)
	if err != nil {
		return &models.RpmKitError{Type: models.ErrPackageRead, Package: config.Path, Err: err}
	}
	defer p.Close()

	if config.Dump {
		return models.Wrap(models.ErrPackageRead, config.Path, p.Dump(w, only...))
	}

	summary, err := summarize(config.Path, p)
	if err != nil {
		return &models.RpmKitError{Type: models.ErrPackageRead, Package: config.Path, Err: err}
	}

	if config.Files {
		for _, f := range summary.Files {
			fmt.Fprintln(w, f)
		}
		return nil
	}

	fields := []struct {
		label string
		value interface{}
	}{
		{"Name", summary.Name},
		{"Version", summary.Version},
		{"Release", summary.Release},
		{"Architecture", summary.Architecture},
		{"Summary", summary.Summary},
		{"License", summary.License},
		{"Compressor", summary.Compressor},
		{"Signed", summary.Signed},
		{"Files", len(summary.Files)},
		{"Size", summary.Size},
		{"SHA256", summary.SHA256Sum},
		{"Provides", strings.Join(summary.Provides, ", ")},
		{"Requires", strings.Join(summary.Requires, ", ")},
		{"Conflicts", strings.Join(summary.Conflicts, ", ")},
		{"Obsoletes", strings.Join(summary.Obsoletes, ", ")},
	}
	for _, f := range fields {
		if s, ok := f.value.(string); ok && s == "" {
			continue
		}
		fmt.Fprintf(w, "%-13s: %v\n", f.label, f.value)
	}
	return nil
}

// summarize reads the metadata of an opened package and the digests of
// its file.
func summarize(path string, p *rpm.Package) (*models.PackageSummary, error) {
	s := &models.PackageSummary{
		Filename:        filepath.Base(path),
		SignatureOffset: p.SignatureOffset(),
		HeaderOffset:    p.HeaderOffset(),
		PayloadOffset:   p.PayloadOffset(),
		Compressor:      utils.CompressorGzip,
	}

	for tag, dst := range map[rpm.Tag]*string{
		rpm.TagName:              &s.Name,
		rpm.TagVersion:           &s.Version,
		rpm.TagRelease:           &s.Release,
		rpm.TagArch:              &s.Architecture,
		rpm.TagSummary:           &s.Summary,
		rpm.TagLicense:           &s.License,
		rpm.TagPayloadCompressor: &s.Compressor,
	} {
		if p.Has(tag) {
			v, err := p.String(tag)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
	}

	relations := []struct {
		list func() ([]rpm.Dependency, error)
		dst  *[]string
	}{
		{p.Provides, &s.Provides},
		{p.Requires, &s.Requires},
		{p.Conflicts, &s.Conflicts},
		{p.Obsoletes, &s.Obsoletes},
	}
	for _, r := range relations {
		deps, err := r.list()
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			*r.dst = append(*r.dst, d.String())
		}
	}

	files, err := p.Files()
	if err != nil {
		return nil, err
	}
	s.Files = files

	for _, tag := range []rpm.Tag{rpm.SigRSA, rpm.SigPGP, rpm.SigDSA, rpm.SigGPG} {
		if p.Signature().Has(tag) {
			s.Signed = true
		}
	}

	checksums, err := utils.CalculateChecksums(path)
	if err != nil {
		return nil, err
	}
	s.Size = checksums.Size
	s.MD5Sum = checksums.MD5
	s.SHA1Sum = checksums.SHA1
	s.SHA256Sum = checksums.SHA256

	return s, nil
}
