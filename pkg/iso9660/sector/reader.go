package sector

import (
	"errors"
	"fmt"
	"io"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
)

// ErrShortRead indicates the source ended before a requested range. Truncated
// or corrupt images surface this rather than a partial buffer.
var ErrShortRead = errors.New("short read from image source")

// Reader provides random access to the 2048-byte logical sectors of a disc
// image. The boot catalog and the boot image live at unrelated offsets, so the
// source must be addressable, not streamed.
type Reader struct {
	ra   io.ReaderAt
	size int64
}

// NewReader wraps a random-access source of the given total size.
func NewReader(ra io.ReaderAt, size int64) *Reader {
	return &Reader{ra: ra, size: size}
}

// Size returns the total size of the underlying source in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// ReadSector returns logical sector sectorNum as exactly one 2048-byte block.
func (r *Reader) ReadSector(sectorNum uint32) ([]byte, error) {
	return r.ReadRange(int64(sectorNum)*consts.ISO9660_SECTOR_SIZE, consts.ISO9660_SECTOR_SIZE)
}

// ReadRange returns exactly length bytes starting at byte offset. A source
// that cannot satisfy the full range yields ErrShortRead.
func (r *Reader) ReadRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid range [%d, +%d)", offset, length)
	}
	if offset+length > r.size {
		return nil, fmt.Errorf("%w: range [%d, +%d) exceeds source size %d",
			ErrShortRead, offset, length, r.size)
	}
	buf := make([]byte, length)
	n, err := r.ra.ReadAt(buf, offset)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == length) {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: got %d of %d bytes at offset %d",
				ErrShortRead, n, length, offset)
		}
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", length, offset, err)
	}
	if int64(n) != length {
		return nil, fmt.Errorf("%w: got %d of %d bytes at offset %d",
			ErrShortRead, n, length, offset)
	}
	return buf, nil
}

// ReadToEnd returns every byte from offset through the end of the source.
func (r *Reader) ReadToEnd(offset int64) ([]byte, error) {
	if offset > r.size {
		return nil, fmt.Errorf("%w: offset %d exceeds source size %d",
			ErrShortRead, offset, r.size)
	}
	return r.ReadRange(offset, r.size-offset)
}
