package pipeline

import (
	"errors"
	"fmt"

	"github.com/hqlauncher/hq-installer/internal/configlink"
)

// Error kinds. Every pipeline error wraps exactly one of these.
var (
	ErrAuth       = errors.New("not logged in")
	ErrManifest   = errors.New("manifest error")
	ErrDownload   = errors.New("download failed")
	ErrExtraction = errors.New("extraction failed")
	ErrFilesystem = errors.New("filesystem error")
	ErrLink       = errors.New("config link failed")
)

func wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// linkError classifies a ConfigLinker failure.
func linkError(cause error) error {
	if errors.Is(cause, configlink.ErrCreateLink) {
		return wrap(ErrLink, "linking config", cause)
	}
	return wrap(ErrFilesystem, "preparing config", cause)
}

// Kind returns the error kind wrapped by err, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrAuth, ErrManifest, ErrDownload, ErrExtraction, ErrFilesystem, ErrLink} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
