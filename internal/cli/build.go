package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ralt/rpmkit/internal/manifest"
	"github.com/ralt/rpmkit/internal/models"
	"github.com/ralt/rpmkit/internal/rpm"
	"github.com/ralt/rpmkit/internal/scanner"
	"github.com/ralt/rpmkit/internal/signer"
	"github.com/ralt/rpmkit/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	var config models.BuildConfig

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a package from a manifest",
		Long: `Reads a package manifest, adds the files of an optional staging tree
and writes <name>-<version>-<release>.rpm into the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate configuration
			if err := validateConfig(&config); err != nil {
				return err
			}

			logrus.Info("Starting package build...")
			logrus.Debugf("Configuration: %+v", config)

			path, err := runBuild(cmd.Context(), &config)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	// Input/Output flags
	cmd.Flags().StringVarP(&config.ManifestPath, "manifest", "m", "", "Path to the package manifest (.yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&config.OutputDir, "output-dir", "o", ".", "Output directory")
	cmd.Flags().StringVarP(&config.Root, "root", "r", "", "Staging directory whose contents are added to the package")
	cmd.Flags().StringVar(&config.Prefix, "prefix", "/", "Install prefix for the staging directory")
	cmd.Flags().StringVarP(&config.Compressor, "compressor", "c", "", "Payload compressor (gzip, xz, zstd); overrides the manifest")

	// GPG signing flags
	cmd.Flags().StringVarP(&config.GPGKeyPath, "gpg-key", "k", "", "Path to GPG private key")
	cmd.Flags().StringVarP(&config.GPGPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")
	cmd.Flags().BoolVar(&config.ExportKey, "export-key", false, "Write the public key next to the package as RPM-GPG-KEY-<name>")

	return cmd
}

func validateConfig(config *models.BuildConfig) error {
	if config.ManifestPath == "" {
		return &models.RpmKitError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("manifest is required"),
		}
	}

	if config.OutputDir == "" {
		return &models.RpmKitError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("output-dir is required"),
		}
	}

	if config.Compressor != "" {
		if _, err := utils.PayloadFlags(config.Compressor); err != nil {
			return &models.RpmKitError{Type: models.ErrInvalidConfig, Err: err}
		}
	}

	if config.ExportKey && config.GPGKeyPath == "" {
		return &models.RpmKitError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("export-key needs gpg-key"),
		}
	}

	if config.Prefix == "" {
		config.Prefix = "/"
	}

	return nil
}

func runBuild(ctx context.Context, config *models.BuildConfig) (string, error) {
	// Step 1: Load the manifest
	logrus.Infof("Loading manifest: %s", config.ManifestPath)
	m, err := manifest.Load(config.ManifestPath)
	if err != nil {
		return "", &models.RpmKitError{Type: models.ErrManifest, Err: err}
	}
	pkgName := utils.PackageIdentity(m.Name, m.Version, m.Release, m.Arch)

	opts := m.Options()
	if config.Compressor != "" {
		opts = append(opts, rpm.WithCompressor(config.Compressor))
	}

	// Step 2: Initialize signer
	var gpgSigner signer.Signer
	if config.GPGKeyPath != "" {
		gpgSigner, err = signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
		if err != nil {
			return "", &models.RpmKitError{
				Type: models.ErrSigning,
				Err:  fmt.Errorf("failed to initialize GPG signer: %w", err),
			}
		}
		opts = append(opts, rpm.WithSigner(gpgSigner))
		logrus.Info("GPG signer initialized")
	}

	// Step 3: Apply manifest and staging tree
	b := rpm.NewBuilder(opts...)
	if err := m.Apply(b, filepath.Dir(config.ManifestPath)); err != nil {
		return "", &models.RpmKitError{Type: models.ErrManifest, Package: pkgName, Err: err}
	}

	if config.Root != "" {
		logrus.Infof("Scanning staging directory: %s", config.Root)
		entries, err := scanner.NewFileSystemScanner().Scan(ctx, config.Root, config.Prefix)
		if err != nil {
			return "", &models.RpmKitError{Type: models.ErrFileOp, Package: pkgName, Err: err}
		}
		if err := addStaged(b, entries); err != nil {
			return "", &models.RpmKitError{Type: models.ErrBuild, Package: pkgName, Err: err}
		}
		logrus.Infof("Added %d staged entries", len(entries))
	}

	// Step 4: Write the package
	if err := utils.EnsureDir(config.OutputDir); err != nil {
		return "", &models.RpmKitError{Type: models.ErrFileOp, Err: err}
	}
	path, err := b.Build(config.OutputDir)
	if err != nil {
		return "", &models.RpmKitError{Type: models.ErrBuild, Package: pkgName, Err: err}
	}

	if config.ExportKey {
		if err := exportPublicKey(gpgSigner, config.OutputDir, m.Name); err != nil {
			return "", &models.RpmKitError{Type: models.ErrSigning, Package: pkgName, Err: err}
		}
	}

	logrus.Info("Package build completed successfully!")
	logrus.Infof("Package: %s", path)
	return path, nil
}

func addStaged(b *rpm.Builder, entries []scanner.StagedEntry) error {
	for _, e := range entries {
		var err error
		switch e.Type {
		case scanner.EntryDir:
			err = b.AddDirectory(e.Target, rpm.UnixMode(e.Mode))
		case scanner.EntrySymlink:
			err = b.AddSymlink(e.Target, e.LinkTo)
		case scanner.EntryFile:
			var fb *rpm.FileBuilder
			fb, err = b.NewFileFromPath(e.Target, e.Path)
			if err == nil {
				err = fb.Build()
			}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", e.Path, err)
		}
	}
	return nil
}

func exportPublicKey(s signer.Signer, dir, name string) error {
	key, err := s.GetPublicKey()
	if err != nil {
		return fmt.Errorf("failed to export public key: %w", err)
	}
	path := filepath.Join(dir, "RPM-GPG-KEY-"+name)
	if err := utils.WriteFile(path, key, 0644); err != nil {
		return err
	}
	logrus.Infof("Public key: %s", path)
	return nil
}
