package parser

import (
	"errors"
	"fmt"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/boot"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/sector"
	"github.com/bgrewell/eltorito-kit/pkg/logging"
)

// ErrNotElTorito indicates the volume descriptor set terminated without an
// El Torito boot record. The image is a plain (non-bootable) ISO9660 disc,
// which callers want to tell apart from a corrupt one.
var ErrNotElTorito = errors.New("image has no El Torito boot record")

func NewParser(reader *sector.Reader, logger *logging.Logger) *Parser {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Parser{
		reader: reader,
		logger: logger,
	}
}

type Parser struct {
	reader *sector.Reader
	logger *logging.Logger
}

// FindBootRecord scans the volume descriptor set for an El Torito boot record.
// The set starts at logical sector 16 and runs until a terminator descriptor
// (type 255). Every descriptor in the set must carry the CD001 identifier;
// anything else means the set is corrupt and the scan aborts.
func (p *Parser) FindBootRecord() (*descriptor.BootRecordDescriptor, error) {
	sectorNum := uint32(consts.ISO9660_SYSTEM_AREA_SECTORS)

	for {
		buf, err := p.reader.ReadSector(sectorNum)
		if err != nil {
			return nil, fmt.Errorf("reading volume descriptor at sector %d: %w", sectorNum, err)
		}

		header := descriptor.VolumeDescriptorHeader{}
		if err = header.Unmarshal([consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte(buf[:7])); err != nil {
			return nil, fmt.Errorf("sector %d: %w", sectorNum, err)
		}

		// A Volume Descriptor Set Terminator has type 255.
		if header.VolumeDescriptorType == descriptor.TYPE_TERMINATOR_DESCRIPTOR {
			p.logger.Debug("Descriptor set terminated without a boot record", "sector", sectorNum)
			return nil, ErrNotElTorito
		}

		if header.VolumeDescriptorType == descriptor.TYPE_BOOT_RECORD {
			bootRecord := &descriptor.BootRecordDescriptor{}
			if err = bootRecord.Unmarshal([consts.ISO9660_SECTOR_SIZE]byte(buf)); err != nil {
				return nil, fmt.Errorf("sector %d: %w", sectorNum, err)
			}
			if bootRecord.IsElTorito() {
				p.logger.Debug("El Torito boot record found",
					"sector", sectorNum,
					"catalogSector", bootRecord.BootCatalogPointer)
				return bootRecord, nil
			}
			p.logger.Trace("Skipping non-El-Torito boot record",
				"sector", sectorNum,
				"bootSystemId", bootRecord.BootSystemIdentifier)
		}

		sectorNum++
	}
}

// FindPrimaryVolumeDescriptor scans the descriptor set for the PVD. Used for
// diagnostics only; its absence does not block boot image extraction.
func (p *Parser) FindPrimaryVolumeDescriptor() (*descriptor.PrimaryVolumeDescriptor, error) {
	sectorNum := uint32(consts.ISO9660_SYSTEM_AREA_SECTORS)

	for {
		buf, err := p.reader.ReadSector(sectorNum)
		if err != nil {
			return nil, fmt.Errorf("reading volume descriptor at sector %d: %w", sectorNum, err)
		}

		header := descriptor.VolumeDescriptorHeader{}
		if err = header.Unmarshal([consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte(buf[:7])); err != nil {
			return nil, fmt.Errorf("sector %d: %w", sectorNum, err)
		}

		if header.VolumeDescriptorType == descriptor.TYPE_TERMINATOR_DESCRIPTOR {
			return nil, errors.New("no primary volume descriptor found in the volume descriptor set")
		}

		if header.VolumeDescriptorType == descriptor.TYPE_PRIMARY_DESCRIPTOR {
			pvd := &descriptor.PrimaryVolumeDescriptor{}
			if err = pvd.Unmarshal([consts.ISO9660_SECTOR_SIZE]byte(buf)); err != nil {
				return nil, fmt.Errorf("sector %d: %w", sectorNum, err)
			}
			return pvd, nil
		}

		sectorNum++
	}
}

// GetBootCatalog reads and parses the catalog sector referenced by the boot
// record.
func (p *Parser) GetBootCatalog(bootRecord *descriptor.BootRecordDescriptor) (*boot.Catalog, error) {
	catalogBytes, err := p.reader.ReadSector(bootRecord.BootCatalogPointer)
	if err != nil {
		return nil, fmt.Errorf("reading boot catalog at sector %d: %w",
			bootRecord.BootCatalogPointer, err)
	}

	catalog, err := boot.ParseCatalog(catalogBytes)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Boot catalog parsed",
		"sector", bootRecord.BootCatalogPointer,
		"platform", catalog.Validation.Platform,
		"emulation", catalog.Initial.Emulation)
	return catalog, nil
}
