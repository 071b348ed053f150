package failures

import (
	"strconv"
	"unicode/utf16"
)

// Hash returns the djb2 hash of url over its UTF-16 code units as lowercase
// hex. It is a storage key only.
func Hash(url string) string {
	var h uint32 = 5381
	for _, c := range utf16.Encode([]rune(url)) {
		h = h*33 + uint32(c)
	}
	return strconv.FormatUint(uint64(h), 16)
}
