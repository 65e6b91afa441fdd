package eltorito

import (
	"fmt"
	"io"
	"os"

	"github.com/bgrewell/eltorito-kit/pkg/iso9660"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/boot"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/parser"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/sector"
	"github.com/bgrewell/eltorito-kit/pkg/option"
)

// The failure kinds an extraction can report, re-exported so callers can
// discriminate with errors.Is without importing the internal packages.
var (
	ErrShortRead           = sector.ErrShortRead
	ErrMalformedDescriptor = descriptor.ErrMalformedDescriptor
	ErrNotElTorito         = parser.ErrNotElTorito
	ErrInvalidCatalog      = boot.ErrInvalidCatalog
	ErrNoDefaultBootImage  = boot.ErrNoDefaultBootImage
)

// Open opens an existing ISO image file read-only and locates its El Torito
// boot catalog. The returned Image must be closed by the caller.
func Open(location string, opts ...option.OpenOption) (*Image, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %q: %w", location, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat image %q: %w", location, err)
	}

	img, err := iso9660.Open(f, fi.Size(), opts...)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Image{Image: img, file: f}, nil
}

// OpenReader opens an ISO image from any random-access byte source of the
// given size. The caller keeps ownership of the reader.
func OpenReader(ra io.ReaderAt, size int64, opts ...option.OpenOption) (*iso9660.Image, error) {
	return iso9660.Open(ra, size, opts...)
}

// Image is a file-backed ISO image opened for boot image extraction.
type Image struct {
	*iso9660.Image
	file *os.File
}

// Close releases the underlying file handle.
func (i *Image) Close() error {
	return i.file.Close()
}
