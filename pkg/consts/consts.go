package consts

const (
	// Number of system area sectors preceding the volume descriptor set.
	ISO9660_SYSTEM_AREA_SECTORS = 16

	// Standard ISO9660 identifier.
	ISO9660_STD_IDENTIFIER = "CD001"

	// ISO9660 volume descriptor version (always 1).
	ISO9660_VOLUME_DESC_VERSION = 1

	// ISO9660 default sector size.
	ISO9660_SECTOR_SIZE = 2048

	// ISO9660 volume descriptor header size
	ISO9660_VOLUME_DESC_HEADER_SIZE = 7

	// El Torito bootable cdrom system identifier.
	EL_TORITO_BOOT_SYSTEM_ID = "EL TORITO SPECIFICATION"

	// Offset of the boot catalog pointer within the boot record sector.
	EL_TORITO_CATALOG_POINTER_OFFSET = 0x47

	// El Torito virtual sector size. Catalog sector counts and emulated
	// floppy geometry are expressed in these units, not in 2048-byte
	// logical sectors.
	EL_TORITO_VSECTOR_SIZE = 512

	// Byte sizes of the emulated floppy geometries. The catalog's sector
	// count field is ignored for floppy emulation; the geometry fixes the
	// image size.
	EL_TORITO_FLOPPY_120_SIZE = 1200 * 1024
	EL_TORITO_FLOPPY_144_SIZE = 1440 * 1024
	EL_TORITO_FLOPPY_288_SIZE = 2880 * 1024

	// Offset of the first partition entry in an MBR and the size of each
	// entry. Used to size hard-disk emulation images.
	MBR_PARTITION_TABLE_OFFSET = 446
	MBR_PARTITION_ENTRY_SIZE   = 16

	// ISO9660 Filler 0x20 (space)
	ISO9660_FILLER = ' '
)
