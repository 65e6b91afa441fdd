package option

import (
	"github.com/bgrewell/eltorito-kit/pkg/logging"
)

// ExtractionProgressCallback is called while the boot image payload is being
// copied out of the source. totalBytes is the derived image length, which is
// known before the copy starts.
type ExtractionProgressCallback func(bytesTransferred int64, totalBytes int64)

type OpenOptions struct {
	ElToritoRequired           bool
	ExtractionProgressCallback ExtractionProgressCallback
	Logger                     *logging.Logger
}

type OpenOption func(*OpenOptions)

// WithExtractionProgress sets a progress callback function that will be called
// with progress updates during the payload copy.
func WithExtractionProgress(callback ExtractionProgressCallback) OpenOption {
	return func(o *OpenOptions) {
		o.ExtractionProgressCallback = callback
	}
}

func WithLogger(logger *logging.Logger) OpenOption {
	return func(o *OpenOptions) {
		o.Logger = logger
	}
}

// WithElToritoRequired controls whether Open fails when the image carries no
// El Torito boot record. Defaults to true; info-only callers can disable it to
// inspect plain ISO9660 images.
func WithElToritoRequired(required bool) OpenOption {
	return func(o *OpenOptions) {
		o.ElToritoRequired = required
	}
}
