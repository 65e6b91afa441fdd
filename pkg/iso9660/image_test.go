package iso9660

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bgrewell/eltorito-kit/pkg/consts"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/boot"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/parser"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660/sector"
	"github.com/bgrewell/eltorito-kit/pkg/option"
	"github.com/stretchr/testify/require"
)

// discBuilder assembles a synthetic bootable disc: zeroed system area, PVD at
// sector 16, boot record at 17, catalog at 18, boot image from 19.
type discBuilder struct {
	data []byte
}

func newDisc(t *testing.T, totalSectors int, catalog *boot.Catalog) *discBuilder {
	t.Helper()
	b := &discBuilder{data: make([]byte, totalSectors*consts.ISO9660_SECTOR_SIZE)}

	pvd := descriptor.PrimaryVolumeDescriptor{
		VolumeDescriptorHeader: descriptor.VolumeDescriptorHeader{
			VolumeDescriptorType:    descriptor.TYPE_PRIMARY_DESCRIPTOR,
			StandardIdentifier:      consts.ISO9660_STD_IDENTIFIER,
			VolumeDescriptorVersion: consts.ISO9660_VOLUME_DESC_VERSION,
		},
		SystemIdentifier: "LINUX",
		VolumeIdentifier: "BOOTDISC",
	}
	pvdBytes, err := pvd.Marshal()
	require.NoError(t, err)
	b.setSector(16, pvdBytes[:])

	br := descriptor.BootRecordDescriptor{
		VolumeDescriptorHeader: descriptor.VolumeDescriptorHeader{
			VolumeDescriptorType:    descriptor.TYPE_BOOT_RECORD,
			StandardIdentifier:      consts.ISO9660_STD_IDENTIFIER,
			VolumeDescriptorVersion: consts.ISO9660_VOLUME_DESC_VERSION,
		},
		BootRecordBody: descriptor.BootRecordBody{
			BootSystemIdentifier: consts.EL_TORITO_BOOT_SYSTEM_ID,
			BootCatalogPointer:   18,
		},
	}
	brBytes, err := br.Marshal()
	require.NoError(t, err)
	b.setSector(17, brBytes[:])

	if catalog != nil {
		catBytes, err := catalog.Marshal()
		require.NoError(t, err)
		b.setSector(18, catBytes)
	}

	return b
}

func (b *discBuilder) setSector(n uint32, contents []byte) {
	copy(b.data[int(n)*consts.ISO9660_SECTOR_SIZE:], contents)
}

func (b *discBuilder) fillFrom(offset int64, pattern byte, length int64) {
	for i := int64(0); i < length; i++ {
		b.data[offset+i] = pattern
	}
}

func (b *discBuilder) open(t *testing.T, opts ...option.OpenOption) *Image {
	t.Helper()
	img, err := Open(bytes.NewReader(b.data), int64(len(b.data)), opts...)
	require.NoError(t, err)
	return img
}

func defaultCatalog(emulation boot.Emulation, sectorCount uint16) *boot.Catalog {
	return &boot.Catalog{
		Validation: boot.ValidationEntry{Platform: boot.BIOS, Manufacturer: "ACME BOOT WORKS"},
		Initial: boot.InitialEntry{
			BootIndicator: 0x88,
			Emulation:     emulation,
			SectorCount:   sectorCount,
			ImageStart:    19,
		},
	}
}

// The reference scenario: a no-emulation entry with sectorCount=4 pointing at
// a 0xAB pattern yields exactly 2048 pattern bytes and matching metadata.
func TestExtractNoEmulation(t *testing.T) {
	b := newDisc(t, 21, defaultCatalog(boot.NoEmulation, 4))
	b.fillFrom(19*consts.ISO9660_SECTOR_SIZE, 0xAB, 2048)

	img := b.open(t)
	require.True(t, img.HasElTorito())

	var sink bytes.Buffer
	info, err := img.ExtractBootImage(&sink)
	require.NoError(t, err)

	require.Equal(t, int64(2048), info.Length)
	require.Equal(t, "no emulation", info.Emulation.String())
	require.Equal(t, boot.BIOS, info.Platform)
	require.Equal(t, "ACME BOOT WORKS", info.Manufacturer)
	require.Equal(t, uint32(19), info.StartSector)

	require.Equal(t, 2048, sink.Len())
	require.Equal(t, bytes.Repeat([]byte{0xAB}, 2048), sink.Bytes())
}

// Floppy emulation sizes come from the emulated geometry; the catalog's
// sector count is ignored even when it is zero or nonsense.
func TestExtractFloppySizeOverride(t *testing.T) {
	cases := []struct {
		name        string
		emulation   boot.Emulation
		sectorCount uint16
		wantLength  int64
	}{
		{"1.2MB_ZeroCount", boot.Floppy12Emulation, 0, 1_228_800},
		{"1.44MB_ZeroCount", boot.Floppy144Emulation, 0, 1_474_560},
		{"1.44MB_BogusCount", boot.Floppy144Emulation, 1, 1_474_560},
		{"2.88MB_ZeroCount", boot.Floppy288Emulation, 0, 2_949_120},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			imageSectors := int(tc.wantLength / consts.ISO9660_SECTOR_SIZE)
			b := newDisc(t, 19+imageSectors, defaultCatalog(tc.emulation, tc.sectorCount))
			b.fillFrom(19*consts.ISO9660_SECTOR_SIZE, 0x5A, tc.wantLength)

			var sink bytes.Buffer
			info, err := b.open(t).ExtractBootImage(&sink)
			require.NoError(t, err)
			require.Equal(t, tc.wantLength, info.Length)
			require.Equal(t, tc.wantLength, int64(sink.Len()))
			require.Equal(t, byte(0x5A), sink.Bytes()[0])
			require.Equal(t, byte(0x5A), sink.Bytes()[sink.Len()-1])
		})
	}
}

// A no-emulation entry with sector count zero extends to the end of the
// source.
func TestExtractNoEmulationToEndOfSource(t *testing.T) {
	b := newDisc(t, 24, defaultCatalog(boot.NoEmulation, 0))
	b.fillFrom(19*consts.ISO9660_SECTOR_SIZE, 0xCD, 5*consts.ISO9660_SECTOR_SIZE)

	var sink bytes.Buffer
	info, err := b.open(t).ExtractBootImage(&sink)
	require.NoError(t, err)
	require.Equal(t, int64(5*consts.ISO9660_SECTOR_SIZE), info.Length)
	require.Equal(t, bytes.Repeat([]byte{0xCD}, 5*consts.ISO9660_SECTOR_SIZE), sink.Bytes())
}

// Hard disk emulation images are sized from partition 1 of their own MBR.
func TestExtractHardDiskFromMBR(t *testing.T) {
	b := newDisc(t, 24, defaultCatalog(boot.HardDiskEmulation, 1))

	// MBR at the image start: partition 1 begins at virtual sector 1 and
	// spans 7 more, so the image is 8 * 512 = 4096 bytes.
	mbrOffset := int64(19 * consts.ISO9660_SECTOR_SIZE)
	b.fillFrom(mbrOffset, 0xEE, 4096)
	part := b.data[mbrOffset+consts.MBR_PARTITION_TABLE_OFFSET:]
	binary.LittleEndian.PutUint32(part[8:12], 1)
	binary.LittleEndian.PutUint32(part[12:16], 7)

	var sink bytes.Buffer
	info, err := b.open(t).ExtractBootImage(&sink)
	require.NoError(t, err)
	require.Equal(t, int64(4096), info.Length)
	require.Equal(t, "hard disk", info.Emulation.String())
	require.Equal(t, 4096, sink.Len())
}

// Hard disk emulation with an empty partition table falls back to the
// catalog's sector count.
func TestExtractHardDiskFallsBackToSectorCount(t *testing.T) {
	b := newDisc(t, 24, defaultCatalog(boot.HardDiskEmulation, 2))

	var sink bytes.Buffer
	info, err := b.open(t).ExtractBootImage(&sink)
	require.NoError(t, err)
	require.Equal(t, int64(1024), info.Length)
}

// A sector count pointing past the end of the source is a short read and the
// sink must stay untouched.
func TestExtractImplausibleSectorCount(t *testing.T) {
	b := newDisc(t, 21, defaultCatalog(boot.NoEmulation, 0xFFFF))

	var sink bytes.Buffer
	_, err := b.open(t).ExtractBootImage(&sink)
	require.ErrorIs(t, err, sector.ErrShortRead)
	require.Zero(t, sink.Len())
}

// An end-of-source entry whose start sector lies beyond the source must fail
// as a short read, not report a negative length.
func TestExtractStartBeyondSource(t *testing.T) {
	cat := defaultCatalog(boot.NoEmulation, 0)
	cat.Initial.ImageStart = 100
	b := newDisc(t, 21, cat)

	img := b.open(t)
	info, err := img.BootImageInfo()
	require.ErrorIs(t, err, sector.ErrShortRead)
	require.Nil(t, info)

	var sink bytes.Buffer
	_, err = img.ExtractBootImage(&sink)
	require.ErrorIs(t, err, sector.ErrShortRead)
	require.Zero(t, sink.Len())
}

// A catalog whose initial entry is not marked bootable fails at open time
// with its own error kind.
func TestOpenNoDefaultBootImage(t *testing.T) {
	cat := defaultCatalog(boot.NoEmulation, 4)
	cat.Initial.BootIndicator = 0x00
	b := newDisc(t, 21, cat)

	_, err := Open(bytes.NewReader(b.data), int64(len(b.data)))
	require.ErrorIs(t, err, boot.ErrNoDefaultBootImage)
}

// An image with a PVD but no boot record is simply not an El Torito disc.
func TestOpenNotElTorito(t *testing.T) {
	data := make([]byte, 20*consts.ISO9660_SECTOR_SIZE)

	pvd := descriptor.PrimaryVolumeDescriptor{
		VolumeDescriptorHeader: descriptor.VolumeDescriptorHeader{
			VolumeDescriptorType:    descriptor.TYPE_PRIMARY_DESCRIPTOR,
			StandardIdentifier:      consts.ISO9660_STD_IDENTIFIER,
			VolumeDescriptorVersion: consts.ISO9660_VOLUME_DESC_VERSION,
		},
	}
	pvdBytes, err := pvd.Marshal()
	require.NoError(t, err)
	copy(data[16*consts.ISO9660_SECTOR_SIZE:], pvdBytes[:])

	term := descriptor.VolumeDescriptorHeader{
		VolumeDescriptorType:    descriptor.TYPE_TERMINATOR_DESCRIPTOR,
		StandardIdentifier:      consts.ISO9660_STD_IDENTIFIER,
		VolumeDescriptorVersion: consts.ISO9660_VOLUME_DESC_VERSION,
	}
	termBytes, err := term.Marshal()
	require.NoError(t, err)
	copy(data[17*consts.ISO9660_SECTOR_SIZE:], termBytes[:])

	_, err = Open(bytes.NewReader(data), int64(len(data)))
	require.ErrorIs(t, err, parser.ErrNotElTorito)

	// Info-only callers can opt out of the requirement.
	img, err := Open(bytes.NewReader(data), int64(len(data)),
		option.WithElToritoRequired(false))
	require.NoError(t, err)
	require.False(t, img.HasElTorito())

	var sink bytes.Buffer
	_, err = img.ExtractBootImage(&sink)
	require.ErrorIs(t, err, parser.ErrNotElTorito)
	require.Zero(t, sink.Len())
}

// Identical source bytes produce identical payload and metadata.
func TestExtractDeterministic(t *testing.T) {
	b := newDisc(t, 21, defaultCatalog(boot.NoEmulation, 4))
	b.fillFrom(19*consts.ISO9660_SECTOR_SIZE, 0xAB, 2048)

	var first, second bytes.Buffer
	info1, err := b.open(t).ExtractBootImage(&first)
	require.NoError(t, err)
	info2, err := b.open(t).ExtractBootImage(&second)
	require.NoError(t, err)

	require.Equal(t, info1, info2)
	require.Equal(t, first.Bytes(), second.Bytes())
}

// The progress callback observes the full derived byte count.
func TestExtractProgressCallback(t *testing.T) {
	b := newDisc(t, 21, defaultCatalog(boot.NoEmulation, 4))

	var calls [][2]int64
	img := b.open(t, option.WithExtractionProgress(func(transferred, total int64) {
		calls = append(calls, [2]int64{transferred, total})
	}))

	var sink bytes.Buffer
	_, err := img.ExtractBootImage(&sink)
	require.NoError(t, err)

	require.NotEmpty(t, calls)
	require.Equal(t, [2]int64{0, 2048}, calls[0])
	require.Equal(t, [2]int64{2048, 2048}, calls[len(calls)-1])
}

// BootImageInfo reports metadata without touching the payload.
func TestBootImageInfo(t *testing.T) {
	b := newDisc(t, 21, defaultCatalog(boot.NoEmulation, 4))

	info, err := b.open(t).BootImageInfo()
	require.NoError(t, err)
	require.Equal(t, int64(2048), info.Length)
	require.Equal(t, uint32(19), info.StartSector)
}
