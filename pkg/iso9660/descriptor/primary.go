package descriptor

import (
	"fmt"
	"strings"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
)

// PrimaryVolumeDescriptor carries the identification fields of the PVD. Only
// the fields reported as extraction diagnostics are decoded; the directory
// tree machinery of a full ISO9660 reader is out of scope here.
type PrimaryVolumeDescriptor struct {
	VolumeDescriptorHeader
	// System Identifier: 32 a-characters at bytes 8-39.
	SystemIdentifier string `json:"system_identifier"`
	// Volume Identifier: 32 d-characters at bytes 40-71.
	VolumeIdentifier string `json:"volume_identifier"`
}

// Unmarshal parses a 2048-byte sector into the PrimaryVolumeDescriptor.
func (d *PrimaryVolumeDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	var headerBytes [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
	copy(headerBytes[:], data[0:7])
	if err := d.VolumeDescriptorHeader.Unmarshal(headerBytes); err != nil {
		return fmt.Errorf("failed to unmarshal VolumeDescriptorHeader: %w", err)
	}
	if d.VolumeDescriptorType != TYPE_PRIMARY_DESCRIPTOR {
		return fmt.Errorf("%w: not a primary volume descriptor (type %d)",
			ErrMalformedDescriptor, d.VolumeDescriptorType)
	}

	d.SystemIdentifier = strings.TrimRight(string(data[8:40]), " ")
	d.VolumeIdentifier = strings.TrimRight(string(data[40:72]), " ")

	return nil
}

// Marshal produces a 2048-byte PVD sector with the identification fields set.
// Fields beyond the identifiers are left zeroed; this is enough for test
// fixtures, not for authoring discs.
func (d *PrimaryVolumeDescriptor) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var buf [consts.ISO9660_SECTOR_SIZE]byte

	headerBytes, err := d.VolumeDescriptorHeader.Marshal()
	if err != nil {
		return buf, fmt.Errorf("failed to marshal VolumeDescriptorHeader: %w", err)
	}
	copy(buf[0:7], headerBytes[:])

	copy(buf[8:40], padString(d.SystemIdentifier, 32))
	copy(buf[40:72], padString(d.VolumeIdentifier, 32))

	return buf, nil
}
