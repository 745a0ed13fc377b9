package vm

import "encoding/binary"

// ModuleHeaderSize is the fixed length of the header every compiled module
// blob must begin with.
const ModuleHeaderSize = 16

// moduleMagic identifies a blob as a module produced for this runtime,
// rejecting unrelated or truncated data before any further parsing.
var moduleMagic = [8]byte{'V', 'M', 'C', 'O', 'R', 'E', 'M', 'D'}

// ModuleHeader is the fixed-size prefix every compiled module blob carries
// ahead of its module-specific payload.
type ModuleHeader struct {
	Magic   [8]byte
	Version uint32
	Flags   uint32
}

// ParseModuleHeader validates and decodes the header at the start of blob.
func ParseModuleHeader(blob []byte) (ModuleHeader, error) {
	if len(blob) < ModuleHeaderSize {
		return ModuleHeader{}, newError(KindInvalidArgument, "module blob too short: need at least %d bytes, have %d", ModuleHeaderSize, len(blob))
	}
	var hdr ModuleHeader
	copy(hdr.Magic[:], blob[0:8])
	if hdr.Magic != moduleMagic {
		return ModuleHeader{}, newError(KindInvalidArgument, "module blob has an unrecognized magic identifier")
	}
	hdr.Version = binary.LittleEndian.Uint32(blob[8:12])
	hdr.Flags = binary.LittleEndian.Uint32(blob[12:16])
	return hdr, nil
}

// EncodeModuleHeader serializes hdr back to its wire form, mainly useful
// for tests and tools constructing synthetic module blobs.
func EncodeModuleHeader(hdr ModuleHeader) []byte {
	buf := make([]byte, ModuleHeaderSize)
	copy(buf[0:8], moduleMagic[:])
	binary.LittleEndian.PutUint32(buf[8:12], hdr.Version)
	binary.LittleEndian.PutUint32(buf[12:16], hdr.Flags)
	return buf
}
