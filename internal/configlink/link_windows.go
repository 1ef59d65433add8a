//go:build windows

package configlink

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/windows"
)

// NativeLinker uses directory junctions, which need no elevation.
type NativeLinker struct{}

func (NativeLinker) CreateLink(link, target string) error {
	out, err := exec.Command("cmd", "/C", "mklink", "/J", link, target).CombinedOutput()
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrLinkUnsupported, err)
	}
	return fmt.Errorf("mklink /J: %w: %s", err, strings.TrimSpace(string(out)))
}

// IsLink reports whether path is a reparse point (junction or symlink).
func (NativeLinker) IsLink(path string) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false, err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) || errors.Is(err, windows.ERROR_PATH_NOT_FOUND) {
			return false, nil
		}
		return false, err
	}
	return attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0, nil
}
