package iso9660

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/boot"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/parser"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/sector"
	"github.com/bgrewell/eltorito-kit/pkg/logging"
	"github.com/bgrewell/eltorito-kit/pkg/option"
)

// BootImageInfo describes the extracted default boot image. It is reported on
// the diagnostics channel; the payload itself goes to the caller's sink.
type BootImageInfo struct {
	Emulation    boot.Emulation `json:"emulation"`
	Platform     boot.Platform  `json:"platform"`
	Manufacturer string         `json:"manufacturer"`
	LoadSegment  uint16         `json:"load_segment"`
	StartSector  uint32         `json:"start_sector"`
	Length       int64          `json:"length"`
}

// Open reads the volume descriptor set and boot catalog from the given
// random-access source. The returned Image owns no resources of its own; the
// caller keeps ownership of the reader.
func Open(isoReader io.ReaderAt, size int64, opts ...option.OpenOption) (*Image, error) {

	// Set default open options
	openOptions := &option.OpenOptions{
		ElToritoRequired: true,
		Logger:           logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(openOptions)
	}
	if openOptions.Logger == nil {
		openOptions.Logger = logging.DefaultLogger()
	}

	reader := sector.NewReader(isoReader, size)
	p := parser.NewParser(reader, openOptions.Logger)

	img := &Image{
		reader:      reader,
		openOptions: openOptions,
		logger:      openOptions.Logger,
	}

	// The PVD is diagnostics only; a disc can boot without one we can parse.
	if pvd, err := p.FindPrimaryVolumeDescriptor(); err == nil {
		img.pvd = pvd
		img.logger.Debug("Primary volume descriptor found",
			"volumeId", pvd.VolumeIdentifier,
			"systemId", pvd.SystemIdentifier)
	}

	bootRecord, err := p.FindBootRecord()
	if err != nil {
		if errors.Is(err, parser.ErrNotElTorito) && !openOptions.ElToritoRequired {
			return img, nil
		}
		return nil, err
	}
	img.bootRecord = bootRecord

	catalog, err := p.GetBootCatalog(bootRecord)
	if err != nil {
		return nil, err
	}
	img.catalog = catalog

	return img, nil
}

// Image represents an opened ISO9660 image positioned for boot image
// extraction.
type Image struct {
	reader      *sector.Reader
	openOptions *option.OpenOptions
	logger      *logging.Logger
	pvd         *descriptor.PrimaryVolumeDescriptor
	bootRecord  *descriptor.BootRecordDescriptor
	catalog     *boot.Catalog
}

// HasElTorito returns true if the image carries an El Torito boot catalog.
func (img *Image) HasElTorito() bool {
	return img.catalog != nil
}

// BootRecord returns the located boot record descriptor, or nil.
func (img *Image) BootRecord() *descriptor.BootRecordDescriptor {
	return img.bootRecord
}

// BootCatalog returns the parsed boot catalog, or nil.
func (img *Image) BootCatalog() *boot.Catalog {
	return img.catalog
}

// PrimaryVolumeDescriptor returns the PVD if one was parsed, or nil.
func (img *Image) PrimaryVolumeDescriptor() *descriptor.PrimaryVolumeDescriptor {
	return img.pvd
}

// BootImageInfo returns the metadata of the default boot image without
// copying any payload bytes.
func (img *Image) BootImageInfo() (*BootImageInfo, error) {
	if img.catalog == nil {
		return nil, parser.ErrNotElTorito
	}

	length, err := img.bootImageLength(&img.catalog.Initial)
	if err != nil {
		return nil, err
	}

	// A catalog can claim a length that runs past the source. Reject it here
	// so no failure path ever reaches the sink.
	startOffset := int64(img.catalog.Initial.ImageStart) * consts.ISO9660_SECTOR_SIZE
	if startOffset+length > img.reader.Size() {
		return nil, fmt.Errorf("%w: boot image range [%d, +%d) exceeds source size %d",
			sector.ErrShortRead, startOffset, length, img.reader.Size())
	}

	return &BootImageInfo{
		Emulation:    img.catalog.Initial.Emulation,
		Platform:     img.catalog.Validation.Platform,
		Manufacturer: img.catalog.Validation.Manufacturer,
		LoadSegment:  img.catalog.Initial.LoadSegment,
		StartSector:  img.catalog.Initial.ImageStart,
		Length:       length,
	}, nil
}

// ExtractBootImage copies the default boot image to w and returns its
// metadata. The copy is all-or-nothing: the payload is read in full before a
// single byte reaches w, so any failure leaves the sink untouched.
func (img *Image) ExtractBootImage(w io.Writer) (*BootImageInfo, error) {
	info, err := img.BootImageInfo()
	if err != nil {
		return nil, err
	}

	startOffset := int64(info.StartSector) * consts.ISO9660_SECTOR_SIZE

	img.logger.Info("Extracting default boot image",
		"emulation", info.Emulation.String(),
		"startSector", info.StartSector,
		"length", info.Length)

	if cb := img.openOptions.ExtractionProgressCallback; cb != nil {
		cb(0, info.Length)
	}

	payload, err := img.reader.ReadRange(startOffset, info.Length)
	if err != nil {
		return nil, fmt.Errorf("reading boot image payload: %w", err)
	}

	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("writing boot image payload: %w", err)
	}

	if cb := img.openOptions.ExtractionProgressCallback; cb != nil {
		cb(info.Length, info.Length)
	}

	return info, nil
}

// bootImageLength derives the byte length of the default boot image. The
// catalog's sector count field is a hint at best; the emulation mode is
// authoritative:
//
//   - floppy emulation fixes the size to the emulated geometry, whatever the
//     catalog claims;
//   - hard disk emulation is sized from partition 1 of the image's own MBR;
//   - no emulation trusts a nonzero sector count, else the image runs to the
//     end of the source.
func (img *Image) bootImageLength(entry *boot.InitialEntry) (int64, error) {
	startOffset := int64(entry.ImageStart) * consts.ISO9660_SECTOR_SIZE

	switch entry.Emulation {
	case boot.Floppy12Emulation:
		return consts.EL_TORITO_FLOPPY_120_SIZE, nil
	case boot.Floppy144Emulation:
		return consts.EL_TORITO_FLOPPY_144_SIZE, nil
	case boot.Floppy288Emulation:
		return consts.EL_TORITO_FLOPPY_288_SIZE, nil
	case boot.HardDiskEmulation:
		length, err := img.hardDiskImageLength(entry)
		if err != nil {
			return 0, err
		}
		if length > 0 {
			return length, nil
		}
	}

	// No emulation, or a hard disk image whose MBR gave us nothing.
	if entry.SectorCount > 0 {
		return int64(entry.SectorCount) * consts.EL_TORITO_VSECTOR_SIZE, nil
	}

	// An end-of-source image must actually start inside the source, or the
	// derived length goes negative.
	if startOffset >= img.reader.Size() {
		return 0, fmt.Errorf("%w: boot image start %d is beyond source size %d",
			sector.ErrShortRead, startOffset, img.reader.Size())
	}

	img.logger.Debug("Catalog sector count is zero, image extends to end of source",
		"startOffset", startOffset)
	return img.reader.Size() - startOffset, nil
}

// hardDiskImageLength sizes a hard-disk emulation image from its MBR: the end
// of partition 1 (first sector plus sector count, in 512-byte units) is the
// end of the image. Returns 0 when the partition table is empty.
func (img *Image) hardDiskImageLength(entry *boot.InitialEntry) (int64, error) {
	mbr, err := img.reader.ReadSector(entry.ImageStart)
	if err != nil {
		return 0, fmt.Errorf("reading MBR of hard disk image: %w", err)
	}

	part := mbr[consts.MBR_PARTITION_TABLE_OFFSET : consts.MBR_PARTITION_TABLE_OFFSET+consts.MBR_PARTITION_ENTRY_SIZE]
	firstSector := binary.LittleEndian.Uint32(part[8:12])
	sectorCount := binary.LittleEndian.Uint32(part[12:16])

	img.logger.Trace("Hard disk image MBR partition 1",
		"firstSector", firstSector,
		"sectorCount", sectorCount)

	return (int64(firstSector) + int64(sectorCount)) * consts.EL_TORITO_VSECTOR_SIZE, nil
}
