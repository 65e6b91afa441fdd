package descriptor

import (
	"errors"
	"fmt"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
)

// ErrMalformedDescriptor indicates a sector inside the volume descriptor set
// that does not carry the ISO9660 standard identifier. The descriptor set is
// untrustworthy past that point, so the scan aborts.
var ErrMalformedDescriptor = errors.New("malformed volume descriptor")

// VolumeDescriptorType classifies a volume descriptor sector.
type VolumeDescriptorType uint8

// Volume Descriptor Types.
//
//	| 0 = Boot Record
//	| 1 = Primary
//	| 2 = Supplementary
//	| 3 = Partition
//	| 4 - 254 = Reserved
//	| 255 = Terminator
const (
	TYPE_BOOT_RECORD              VolumeDescriptorType = 0
	TYPE_PRIMARY_DESCRIPTOR       VolumeDescriptorType = 1
	TYPE_SUPPLEMENTARY_DESCRIPTOR VolumeDescriptorType = 2
	TYPE_PARTITION_DESCRIPTOR     VolumeDescriptorType = 3
	TYPE_TERMINATOR_DESCRIPTOR    VolumeDescriptorType = 255
)

type VolumeDescriptorHeader struct {
	VolumeDescriptorType VolumeDescriptorType `json:"volume_descriptor_type"`
	// Standard Identifier should always be 'CD001' as a string or 0x4344303031.
	StandardIdentifier string `json:"standard_identifier"`
	// Volume Descriptor Version. The contents and interpretation depend on the Volume Descriptor Type field.
	VolumeDescriptorVersion uint8 `json:"volume_descriptor_version"`
}

func (h *VolumeDescriptorHeader) Type() VolumeDescriptorType {
	return h.VolumeDescriptorType
}

func (h *VolumeDescriptorHeader) Identifier() string {
	return h.StandardIdentifier
}

func (h *VolumeDescriptorHeader) Version() uint8 {
	return h.VolumeDescriptorVersion
}

// Marshal converts the VolumeDescriptorHeader into its 7-byte on-disk representation.
func (vdh *VolumeDescriptorHeader) Marshal() ([consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte, error) {
	var buf [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte

	// Byte 0: Volume Descriptor Type.
	buf[0] = byte(vdh.VolumeDescriptorType)

	// Bytes 1-5: Standard Identifier, padded with spaces as needed.
	copy(buf[1:6], padString(vdh.StandardIdentifier, 5))

	// Byte 6: Volume Descriptor Version.
	buf[6] = vdh.VolumeDescriptorVersion

	return buf, nil
}

// Unmarshal parses a 7-byte slice into the VolumeDescriptorHeader.
func (vdh *VolumeDescriptorHeader) Unmarshal(data [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte) error {
	vdh.VolumeDescriptorType = VolumeDescriptorType(data[0])
	vdh.StandardIdentifier = string(data[1:6])
	vdh.VolumeDescriptorVersion = data[6]

	if vdh.StandardIdentifier != consts.ISO9660_STD_IDENTIFIER {
		return fmt.Errorf("%w: unexpected standard identifier %q",
			ErrMalformedDescriptor, vdh.StandardIdentifier)
	}

	return nil
}

func padString(s string, length int) []byte {
	b := make([]byte, length)
	copy(b, s)
	for i := len(s); i < length; i++ {
		b[i] = consts.ISO9660_FILLER
	}
	return b
}
