package boot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func validCatalogBytes(t *testing.T) []byte {
	t.Helper()
	cat := &Catalog{
		Validation: ValidationEntry{
			Platform:     BIOS,
			Manufacturer: "TEST MEDIA",
		},
		Initial: InitialEntry{
			BootIndicator: 0x88,
			Emulation:     NoEmulation,
			SectorCount:   4,
			ImageStart:    19,
		},
	}
	data, err := cat.Marshal()
	require.NoError(t, err)
	return data
}

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog(validCatalogBytes(t))
	require.NoError(t, err)

	require.Equal(t, BIOS, cat.Validation.Platform)
	require.Equal(t, "TEST MEDIA", cat.Validation.Manufacturer)
	require.Equal(t, byte(0x88), cat.Initial.BootIndicator)
	require.Equal(t, NoEmulation, cat.Initial.Emulation)
	require.Equal(t, uint16(4), cat.Initial.SectorCount)
	require.Equal(t, uint32(19), cat.Initial.ImageStart)
}

func TestParseCatalogFieldOffsets(t *testing.T) {
	data := validCatalogBytes(t)
	binary.LittleEndian.PutUint16(data[34:36], 0x07C0) // load segment
	data[36] = 0x83                                    // system type
	binary.LittleEndian.PutUint16(data[38:40], 2880)
	binary.LittleEndian.PutUint32(data[40:44], 0x1234)

	cat, err := ParseCatalog(data)
	require.NoError(t, err)
	require.Equal(t, uint16(0x07C0), cat.Initial.LoadSegment)
	require.Equal(t, byte(0x83), cat.Initial.SystemType)
	require.Equal(t, uint16(2880), cat.Initial.SectorCount)
	require.Equal(t, uint32(0x1234), cat.Initial.ImageStart)
}

func TestParseCatalogChecksum(t *testing.T) {
	t.Run("AnyWordCorruptionRejected", func(t *testing.T) {
		// Flipping any byte of the validation entry breaks the word sum, no
		// matter which field it lands in.
		for _, offset := range []int{2, 5, 12, 27} {
			data := validCatalogBytes(t)
			data[offset] ^= 0x01
			_, err := ParseCatalog(data)
			require.ErrorIs(t, err, ErrInvalidCatalog, "corrupt byte at offset %d", offset)
		}
	})

	t.Run("ZeroedChecksumRejected", func(t *testing.T) {
		data := validCatalogBytes(t)
		data[0x1C] = 0
		data[0x1D] = 0
		_, err := ParseCatalog(data)
		require.ErrorIs(t, err, ErrInvalidCatalog)
	})
}

func TestParseCatalogHeaderID(t *testing.T) {
	data := validCatalogBytes(t)
	data[0] = 0x02
	_, err := ParseCatalog(data)
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestParseCatalogKeyBytes(t *testing.T) {
	data := validCatalogBytes(t)
	// Swap the key bytes and fix the checksum back up so only the key check
	// can fire.
	data[0x1E], data[0x1F] = 0xAA, 0x55
	binary.LittleEndian.PutUint16(data[0x1C:0x1E], 0)
	checksum := uint16(0)
	for i := 0; i < 32; i += 2 {
		checksum += binary.LittleEndian.Uint16(data[i : i+2])
	}
	binary.LittleEndian.PutUint16(data[0x1C:0x1E], -checksum)

	_, err := ParseCatalog(data)
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestParseCatalogNotBootable(t *testing.T) {
	data := validCatalogBytes(t)
	data[32] = 0x00
	_, err := ParseCatalog(data)
	require.ErrorIs(t, err, ErrNoDefaultBootImage)
	require.NotErrorIs(t, err, ErrInvalidCatalog)
}

func TestParseCatalogTooShort(t *testing.T) {
	_, err := ParseCatalog(make([]byte, 48))
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestEmulationString(t *testing.T) {
	require.Equal(t, "no emulation", NoEmulation.String())
	require.Equal(t, "1.2MB floppy", Floppy12Emulation.String())
	require.Equal(t, "1.44MB floppy", Floppy144Emulation.String())
	require.Equal(t, "2.88MB floppy", Floppy288Emulation.String())
	require.Equal(t, "hard disk", HardDiskEmulation.String())
}

func TestPlatformString(t *testing.T) {
	require.Equal(t, "x86", BIOS.String())
	require.Equal(t, "PowerPC", PPC.String())
	require.Equal(t, "Mac", Mac.String())
	require.Equal(t, "EFI", EFI.String())
}
