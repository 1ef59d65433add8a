//go:build unix

package configlink

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// NativeLinker uses symbolic links.
type NativeLinker struct{}

func (NativeLinker) CreateLink(link, target string) error {
	err := os.Symlink(target, link)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.ENOSYS) {
		return fmt.Errorf("%w: %w", ErrLinkUnsupported, err)
	}
	return err
}

func (NativeLinker) IsLink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}
