// Package archive bundles the basis file and settings file into a tar.gz
// so a team can share them, and restores them from one.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/mholt/archives"
)

// Entry names inside a bundle
const (
	BasisEntry    = "credential-bases.txt"
	SettingsEntry = "credential-store.yml"
)

// ErrNoBasisFile means an archive has no basis file entry
var ErrNoBasisFile = errors.New("archive does not contain " + BasisEntry)

// Bundle names the files on disk that make up a bundle. SettingsFile is
// optional.
type Bundle struct {
	BasisFile    string
	SettingsFile string
}

// Export writes a tar.gz at archivePath holding the basis file and, when it
// exists, the settings file. It returns the entry names written.
func Export(ctx context.Context, archivePath string, b Bundle) ([]string, error) {
	if _, err := os.Stat(b.BasisFile); err != nil {
		return nil, fmt.Errorf("cannot export basis file: %w", err)
	}

	filenames := map[string]string{b.BasisFile: BasisEntry}
	entries := []string{BasisEntry}
	if b.SettingsFile != "" {
		if _, err := os.Stat(b.SettingsFile); err == nil {
			filenames[b.SettingsFile] = SettingsEntry
			entries = append(entries, SettingsEntry)
		}
	}

	files, err := archives.FilesFromDisk(ctx, nil, filenames)
	if err != nil {
		return nil, fmt.Errorf("failed to collect files: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	out, err := os.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() { _ = out.Close() }()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, out, files); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}

	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	return entries, nil
}

// Import restores the bundle files from archivePath. Existing files are kept
// next to the restored ones with a .bak suffix. Entries other than the
// bundle files are ignored. It returns the paths written.
func Import(ctx context.Context, archivePath string, b Bundle) ([]string, error) {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = archiveFile.Close() }()

	format, archiveReader, err := archives.Identify(ctx, archivePath, archiveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to identify archive format: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("format does not support extraction: %s", archivePath)
	}

	targets := map[string]string{BasisEntry: b.BasisFile}
	if b.SettingsFile != "" {
		targets[SettingsEntry] = b.SettingsFile
	}

	var written []string
	handler := func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() {
			return nil
		}
		dest, ok := targets[path.Clean(f.NameInArchive)]
		if !ok {
			return nil
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open file in archive: %w", err)
		}
		defer func() { _ = rc.Close() }()

		if err := restore(dest, rc); err != nil {
			return err
		}
		written = append(written, dest)
		return nil
	}

	if err := extractor.Extract(ctx, archiveReader, handler); err != nil {
		return written, fmt.Errorf("extraction failed: %w", err)
	}

	for _, w := range written {
		if w == b.BasisFile {
			return written, nil
		}
	}
	return written, ErrNoBasisFile
}

// restore writes r to dest through a temporary file, moving any existing
// dest to dest.bak first
func restore(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".import-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to extract file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to extract file: %w", err)
	}

	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, dest+".bak"); err != nil {
			return fmt.Errorf("failed to back up %s: %w", dest, err)
		}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}
	return nil
}
