package boot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
)

var (
	// ErrInvalidCatalog indicates the validation entry failed its header,
	// checksum or key byte checks. Nothing in the catalog can be trusted, so
	// extraction aborts rather than guessing.
	ErrInvalidCatalog = errors.New("invalid El Torito boot catalog")

	// ErrNoDefaultBootImage indicates a well-formed catalog whose
	// initial/default entry is not marked bootable (0x88).
	ErrNoDefaultBootImage = errors.New("no default boot image marked bootable")
)

// Platform represents the target booting system for an El-Torito bootable ISO.
type Platform uint8

const (
	BIOS Platform = 0x0  // Classic PC-BIOS x86
	PPC  Platform = 0x1  // PowerPC
	Mac  Platform = 0x2  // Macintosh systems
	EFI  Platform = 0xef // Extensible Firmware Interface (EFI)
)

func (p Platform) String() string {
	switch p {
	case BIOS:
		return "x86"
	case PPC:
		return "PowerPC"
	case Mac:
		return "Mac"
	case EFI:
		return "EFI"
	default:
		return fmt.Sprintf("unknown (0x%02x)", uint8(p))
	}
}

// Emulation represents the emulation mode used for booting.
type Emulation uint8

const (
	NoEmulation        Emulation = 0x0 // No emulation (default)
	Floppy12Emulation  Emulation = 0x1 // Emulate a 1.2 MB floppy
	Floppy144Emulation Emulation = 0x2 // Emulate a 1.44 MB floppy
	Floppy288Emulation Emulation = 0x3 // Emulate a 2.88 MB floppy
	HardDiskEmulation  Emulation = 0x4 // Emulate a hard disk
)

func (e Emulation) String() string {
	switch e {
	case NoEmulation:
		return "no emulation"
	case Floppy12Emulation:
		return "1.2MB floppy"
	case Floppy144Emulation:
		return "1.44MB floppy"
	case Floppy288Emulation:
		return "2.88MB floppy"
	case HardDiskEmulation:
		return "hard disk"
	default:
		return fmt.Sprintf("unknown (0x%02x)", uint8(e))
	}
}

// ValidationEntry is the first 32 bytes of the boot catalog.
type ValidationEntry struct {
	Platform     Platform // Target platform
	Manufacturer string   // Developer/manufacturer identifier (24 bytes, NUL padded)
	Checksum     uint16   // Stored word-sum complement
}

// InitialEntry is the initial/default boot entry, bytes 32-63 of the catalog.
type InitialEntry struct {
	BootIndicator byte      // 0x88 = bootable, 0x00 = not bootable
	Emulation     Emulation // Media emulation mode
	LoadSegment   uint16    // Load segment for x86 (0 means the traditional 0x7C0)
	SystemType    byte      // Partition type byte copied from the image's boot sector
	SectorCount   uint16    // Virtual (512-byte) sectors to load; a size hint only
	ImageStart    uint32    // Start of the image in 2048-byte sectors
}

// Bootable reports whether the entry's boot indicator marks a usable default
// image.
func (e *InitialEntry) Bootable() bool {
	return e.BootIndicator == 0x88
}

// Catalog holds the parsed validation and initial/default entries of a boot
// catalog. Additional section headers and entries may follow on disc; locating
// the default image only ever needs these first two.
type Catalog struct {
	Validation ValidationEntry
	Initial    InitialEntry
}

// ParseCatalog decodes the boot catalog sector. The validation entry is
// checked in full (header id, 16-bit word-sum checksum, 0x55AA key bytes)
// before the initial entry is even looked at.
func ParseCatalog(data []byte) (*Catalog, error) {
	if len(data) < 64 {
		return nil, fmt.Errorf("%w: catalog data too short (%d bytes)", ErrInvalidCatalog, len(data))
	}

	validation, err := parseValidationEntry(data[0:32])
	if err != nil {
		return nil, err
	}

	initial := parseInitialEntry(data[32:64])
	if !initial.Bootable() {
		return nil, fmt.Errorf("%w: boot indicator is 0x%02x",
			ErrNoDefaultBootImage, initial.BootIndicator)
	}

	return &Catalog{Validation: *validation, Initial: *initial}, nil
}

func parseValidationEntry(data []byte) (*ValidationEntry, error) {
	if data[0] != 0x01 {
		return nil, fmt.Errorf("%w: validation entry header id is 0x%02x", ErrInvalidCatalog, data[0])
	}

	// The sixteen little-endian words of the entry must sum to zero mod
	// 0x10000. Decode each word from raw bytes; reinterpreting the buffer
	// with native-endian reads would break on big-endian hosts.
	checksum := uint16(0)
	for i := 0; i < 32; i += 2 {
		checksum += binary.LittleEndian.Uint16(data[i : i+2])
	}
	if checksum != 0 {
		return nil, fmt.Errorf("%w: validation entry checksum is 0x%04x, want 0", ErrInvalidCatalog, checksum)
	}

	if data[0x1E] != 0x55 || data[0x1F] != 0xAA {
		return nil, fmt.Errorf("%w: validation entry key bytes are 0x%02x%02x, want 0x55AA",
			ErrInvalidCatalog, data[0x1E], data[0x1F])
	}

	return &ValidationEntry{
		Platform:     Platform(data[1]),
		Manufacturer: strings.TrimRight(string(data[4:28]), "\x00"),
		Checksum:     binary.LittleEndian.Uint16(data[0x1C:0x1E]),
	}, nil
}

func parseInitialEntry(data []byte) *InitialEntry {
	return &InitialEntry{
		BootIndicator: data[0],
		Emulation:     Emulation(data[1] & 0x0f),
		LoadSegment:   binary.LittleEndian.Uint16(data[2:4]),
		SystemType:    data[4],
		SectorCount:   binary.LittleEndian.Uint16(data[6:8]),
		ImageStart:    binary.LittleEndian.Uint32(data[8:12]),
	}
}

// Marshal encodes the catalog into a 2048-byte sector with a freshly computed
// validation checksum. Retained for constructing test images; this library
// never writes catalogs back to a disc.
func (c *Catalog) Marshal() ([]byte, error) {
	data := make([]byte, consts.ISO9660_SECTOR_SIZE)

	// Validation entry (first 32 bytes)
	data[0] = 0x01
	data[1] = byte(c.Validation.Platform)
	copy(data[4:28], c.Validation.Manufacturer)
	data[0x1E] = 0x55
	data[0x1F] = 0xAA

	checksum := uint16(0)
	for i := 0; i < 32; i += 2 {
		checksum += binary.LittleEndian.Uint16(data[i : i+2])
	}
	binary.LittleEndian.PutUint16(data[0x1C:0x1E], -checksum)

	// Initial/default entry (next 32 bytes)
	data[32] = c.Initial.BootIndicator
	data[33] = byte(c.Initial.Emulation)
	binary.LittleEndian.PutUint16(data[34:36], c.Initial.LoadSegment)
	data[36] = c.Initial.SystemType
	binary.LittleEndian.PutUint16(data[38:40], c.Initial.SectorCount)
	binary.LittleEndian.PutUint32(data[40:44], c.Initial.ImageStart)

	return data, nil
}
