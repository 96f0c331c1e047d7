package scanner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner for a directory on disk
type FileSystemScanner struct{}

// NewFileSystemScanner creates a new filesystem scanner
func NewFileSystemScanner() *FileSystemScanner {
	return &FileSystemScanner{}
}

// Scan recursively walks root without following symlinks. Entries come
// back in lexical order, directories before their contents.
func (s *FileSystemScanner) Scan(ctx context.Context, root, prefix string) ([]StagedEntry, error) {
	var entries []StagedEntry
	if prefix == "" {
		prefix = "/"
	}

	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		entry := StagedEntry{
			Path:   p,
			Target: path.Join(prefix, filepath.ToSlash(rel)),
			Mode:   info.Mode(),
			Size:   info.Size(),
		}

		switch {
		case info.IsDir():
			entry.Type = EntryDir
			entry.Size = 0
		case info.Mode()&os.ModeSymlink != 0:
			entry.Type = EntrySymlink
			entry.LinkTo, err = os.Readlink(p)
			if err != nil {
				return err
			}
		case info.Mode().IsRegular():
			entry.Type = EntryFile
		default:
			logrus.Warnf("Skipping %s: unsupported file type %s", p, info.Mode().Type())
			return nil
		}

		logrus.Debugf("Staged %s %s -> %s", entry.Type, p, entry.Target)
		entries = append(entries, entry)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Infof("Found %d entries in %s", len(entries), root)
	return entries, nil
}
