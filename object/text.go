package object

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Text decodes a PDF string value to UTF-8. PDF text strings (as opposed to
// byte strings used for raw binary payloads) are either UTF-16BE with a
// leading 0xFE 0xFF byte-order mark, or PDFDocEncoding, a single-byte
// encoding PDF defines that is close enough to Windows-1252 for every
// character the Info dictionary's Title/Author/Subject/Keywords fields
// actually use in practice; this core approximates PDFDocEncoding with
// Windows-1252, the same shortcut several PDF libraries in the wild take.
func (s String) Text() string {
	if bytes.HasPrefix(s.Bytes, []byte{0xFE, 0xFF}) {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(s.Bytes)
		if err == nil {
			return string(decoded)
		}
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(s.Bytes)
	if err != nil {
		return string(s.Bytes)
	}
	return string(decoded)
}
