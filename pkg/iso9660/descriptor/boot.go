package descriptor

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
)

type BootRecordDescriptor struct {
	VolumeDescriptorHeader
	BootRecordBody
}

type BootRecordBody struct {
	// Boot System Identifier specifies an identification of a system which can
	// recognize and act upon the contents of the Boot Identifier and Boot
	// System Use fields in the Boot Record. El Torito discs carry
	// "EL TORITO SPECIFICATION" here, NUL padded to 32 bytes.
	BootSystemIdentifier string `json:"boot_system_identifier"`
	// Boot Identifier shall specify an identification of the boot system
	// specified in the Boot System Use field of the Boot Record.
	BootIdentifier string `json:"boot_identifier"`
	// Boot Catalog Pointer is the absolute 2048-byte sector number of the boot
	// catalog, stored little-endian at byte 0x47 (the first four bytes of the
	// Boot System Use area).
	BootCatalogPointer uint32 `json:"boot_catalog_pointer"`
}

// IsElTorito reports whether the boot system identifier names the El Torito
// extension.
func (d *BootRecordDescriptor) IsElTorito() bool {
	trimmed := strings.TrimRight(d.BootSystemIdentifier, "\x00")
	return trimmed == consts.EL_TORITO_BOOT_SYSTEM_ID
}

// Marshal converts the BootRecordDescriptor into its 2048-byte on-disk representation.
func (d *BootRecordDescriptor) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var buf [consts.ISO9660_SECTOR_SIZE]byte

	// 1. Marshal the VolumeDescriptorHeader (first 7 bytes).
	headerBytes, err := d.VolumeDescriptorHeader.Marshal()
	if err != nil {
		return buf, fmt.Errorf("failed to marshal VolumeDescriptorHeader: %w", err)
	}
	copy(buf[0:7], headerBytes[:])

	// 2. Boot System Identifier: 32 bytes, NUL padded.
	copy(buf[7:39], d.BootSystemIdentifier)

	// 3. Boot Identifier: 32 bytes, NUL padded.
	copy(buf[39:71], d.BootIdentifier)

	// 4. Boot Catalog Pointer: LE uint32 at 0x47.
	binary.LittleEndian.PutUint32(buf[consts.EL_TORITO_CATALOG_POINTER_OFFSET:], d.BootCatalogPointer)

	return buf, nil
}

// Unmarshal parses a 2048-byte sector into the BootRecordDescriptor.
func (d *BootRecordDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	// 1. Unmarshal the VolumeDescriptorHeader (first 7 bytes).
	var headerBytes [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
	copy(headerBytes[:], data[0:7])
	if err := d.VolumeDescriptorHeader.Unmarshal(headerBytes); err != nil {
		return fmt.Errorf("failed to unmarshal VolumeDescriptorHeader: %w", err)
	}

	// 2. Boot System Identifier: 32 bytes, trim NUL and space padding.
	d.BootSystemIdentifier = strings.TrimRight(string(data[7:39]), "\x00 ")

	// 3. Boot Identifier: 32 bytes.
	d.BootIdentifier = strings.TrimRight(string(data[39:71]), "\x00 ")

	// 4. Boot Catalog Pointer: LE uint32 at 0x47.
	d.BootCatalogPointer = binary.LittleEndian.Uint32(
		data[consts.EL_TORITO_CATALOG_POINTER_OFFSET : consts.EL_TORITO_CATALOG_POINTER_OFFSET+4])

	return nil
}
