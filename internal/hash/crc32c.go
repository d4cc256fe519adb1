// Package hash provides the checksum used for archive frame
// integrity.
//
// CRC32-Castagnoli is hardware-accelerated on x86 (SSE4.2) and ARM
// (CRC extension) and detects burst errors up to 32 bits, which is
// why storage frames (iSCSI, RocksDB, LevelDB) standardize on it.
package hash

import "hash/crc32"

// The Castagnoli table is computed once; MakeTable per frame would
// dominate small checksums.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}
