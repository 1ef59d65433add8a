// Package archive validates and extracts zip packages.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hqlauncher/hq-installer/internal/logging"
)

// ErrNotZip is returned when a downloaded file lacks the zip signature.
var ErrNotZip = errors.New("not a zip archive")

// ProgressFunc is called after each file entry is handled.
type ProgressFunc func(done, total int, name string)

// RequireZip checks that path starts with the "PK" signature. On mismatch
// the file is deleted, since it is usually an HTML error page.
func RequireZip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	header := make([]byte, 4)
	n, err := io.ReadFull(f, header)
	f.Close()
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if n < 2 || header[0] != 'P' || header[1] != 'K' {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Debugf("Verbose: removing invalid archive %s: %v\n", path, rmErr)
		}
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotZip)
	}
	return nil
}

// ExtractPackage extracts a Thunderstore package: loose top-level files are
// dropped and the first path component of everything else is stripped, so
// Pack/BepInEx/core/x.dll lands at destDir/BepInEx/core/x.dll.
func ExtractPackage(ctx context.Context, zipPath, destDir string, onProgress ProgressFunc) error {
	return extract(ctx, zipPath, destDir, stripTopLevel, false, onProgress)
}

// ExtractAddOnly extracts every entry, skipping files that already exist.
func ExtractAddOnly(ctx context.Context, zipPath, destDir string, onProgress ProgressFunc) error {
	return extract(ctx, zipPath, destDir, keepName, true, onProgress)
}

// ExtractAll extracts every entry, overwriting existing files.
func ExtractAll(ctx context.Context, zipPath, destDir string, onProgress ProgressFunc) error {
	return extract(ctx, zipPath, destDir, keepName, false, onProgress)
}

// Zip exposes the extraction functions as methods.
type Zip struct{}

func (Zip) ExtractPackage(ctx context.Context, zipPath, destDir string, onProgress ProgressFunc) error {
	return ExtractPackage(ctx, zipPath, destDir, onProgress)
}

func (Zip) ExtractAddOnly(ctx context.Context, zipPath, destDir string, onProgress ProgressFunc) error {
	return ExtractAddOnly(ctx, zipPath, destDir, onProgress)
}

func keepName(name string) (string, bool) {
	return name, true
}

func stripTopLevel(name string) (string, bool) {
	_, rest, ok := strings.Cut(name, "/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

type entry struct {
	file *zip.File
	rel  string
}

func extract(ctx context.Context, zipPath, destDir string, mapName func(string) (string, bool), addOnly bool, onProgress ProgressFunc) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer r.Close()

	cleanDest := filepath.Clean(destDir)
	if err := os.MkdirAll(cleanDest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", cleanDest, err)
	}

	var files []entry
	for _, f := range r.File {
		name := strings.TrimLeft(strings.ReplaceAll(f.Name, "\\", "/"), "/")
		rel, ok := mapName(name)
		if !ok {
			continue
		}
		path := filepath.Join(cleanDest, filepath.FromSlash(rel))
		// Security check: prevent path traversal
		if path != cleanDest && !strings.HasPrefix(path, cleanDest+string(os.PathSeparator)) {
			logging.Debugf("Verbose: skipping entry outside destination: %s\n", f.Name)
			continue
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		files = append(files, entry{file: f, rel: rel})
	}

	total := len(files)
	for i, e := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(cleanDest, filepath.FromSlash(e.rel))
		if err := writeEntry(e.file, path, addOnly); err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(i+1, total, e.rel)
		}
	}
	return nil
}

func writeEntry(f *zip.File, path string, addOnly bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if addOnly {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	out, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if addOnly && errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("creating %s: %w", path, err)
	}

	rc, err := f.Open()
	if err != nil {
		out.Close()
		return fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	_, err = io.Copy(out, rc)
	rc.Close()
	closeErr := out.Close()
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", path, closeErr)
	}
	return nil
}
