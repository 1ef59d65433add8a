//go:build !unix && !windows

package configlink

import "os"

// NativeLinker reports links as unsupported, so config falls back to a
// plain directory per version.
type NativeLinker struct{}

func (NativeLinker) CreateLink(link, target string) error {
	return ErrLinkUnsupported
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
