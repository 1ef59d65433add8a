package configlink

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyDirAddOnly copies the tree at src into dst. Existing destination
// files are never overwritten; subdirectories are always descended into.
// It returns the number of files written.
func CopyDirAddOnly(src, dst string) (int, error) {
	if samePath(src, dst) {
		return 0, nil
	}

	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		if !d.Type().IsRegular() {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		}

		wrote, err := copyFileIfAbsent(path, target)
		if err != nil {
			return err
		}
		if wrote {
			copied++
		}
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return copied, nil
}

// copyFileIfAbsent creates dst exclusively, so a file that appears between
// the existence check and the write is still never overwritten.
func copyFileIfAbsent(src, dst string) (bool, error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("creating %s: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return false, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	_, err = io.Copy(out, in)
	closeErr := out.Close()
	if err != nil {
		os.Remove(dst)
		return false, fmt.Errorf("writing %s: %w", dst, err)
	}
	if closeErr != nil {
		os.Remove(dst)
		return false, fmt.Errorf("closing %s: %w", dst, closeErr)
	}
	return true, nil
}
