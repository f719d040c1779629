package extract

import "bytes"

var (
	elfMagic      = []byte{0x7f, 'E', 'L', 'F'}
	peMagic       = []byte{'M', 'Z'}
	machO32       = []byte{0xfe, 0xed, 0xfa, 0xce}
	machO32Swap   = []byte{0xce, 0xfa, 0xed, 0xfe}
	machO64       = []byte{0xfe, 0xed, 0xfa, 0xcf}
	machO64Swap   = []byte{0xcf, 0xfa, 0xed, 0xfe}
	machOFat      = []byte{0xca, 0xfe, 0xba, 0xbe}
	machOFatSwap  = []byte{0xbe, 0xba, 0xfe, 0xca}
	scriptShebang = []byte{'#', '!'}
)

// DetectBinaryKind inspects the leading bytes of data to classify its
// executable format, per §4.5: MZ -> PE, \x7FELF -> ELF, Mach-O magic
// (32/64/fat, either endianness) -> Mach-O, "#!" -> script.
func DetectBinaryKind(data []byte) BinaryKind {
	switch {
	case hasPrefix(data, elfMagic):
		return BinaryELF
	case hasPrefix(data, peMagic):
		return BinaryPE
	case hasPrefix(data, machO32), hasPrefix(data, machO32Swap),
		hasPrefix(data, machO64), hasPrefix(data, machO64Swap),
		hasPrefix(data, machOFat), hasPrefix(data, machOFatSwap):
		return BinaryMachO
	case hasPrefix(data, scriptShebang):
		return BinaryScript
	default:
		return BinaryUnknown
	}
}

func hasPrefix(data, magic []byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}
