package shapefile

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// codePages maps bare Windows/DOS code page numbers, as written in .cpg
// files, to encodings.
var codePages = map[string]encoding.Encoding{
	"437":    charmap.CodePage437,
	"850":    charmap.CodePage850,
	"852":    charmap.CodePage852,
	"855":    charmap.CodePage855,
	"858":    charmap.CodePage858,
	"860":    charmap.CodePage860,
	"862":    charmap.CodePage862,
	"863":    charmap.CodePage863,
	"865":    charmap.CodePage865,
	"866":    charmap.CodePage866,
	"874":    charmap.Windows874,
	"1250":   charmap.Windows1250,
	"1251":   charmap.Windows1251,
	"1252":   charmap.Windows1252,
	"1253":   charmap.Windows1253,
	"1254":   charmap.Windows1254,
	"1255":   charmap.Windows1255,
	"1256":   charmap.Windows1256,
	"1257":   charmap.Windows1257,
	"1258":   charmap.Windows1258,
	"65001":  unicode.UTF8,
	"88591":  charmap.ISO8859_1,
	"88592":  charmap.ISO8859_2,
	"88595":  charmap.ISO8859_5,
	"88597":  charmap.ISO8859_7,
	"88599":  charmap.ISO8859_9,
	"885915": charmap.ISO8859_15,
}

// languageDrivers maps the dBASE language driver ID (header byte 29) to an
// encoding.
var languageDrivers = map[byte]encoding.Encoding{
	0x01: charmap.CodePage437,
	0x02: charmap.CodePage850,
	0x03: charmap.Windows1252,
	0x08: charmap.CodePage865,
	0x09: charmap.CodePage437,
	0x0A: charmap.CodePage850,
	0x0B: charmap.CodePage437,
	0x0D: charmap.CodePage437,
	0x0E: charmap.CodePage850,
	0x0F: charmap.CodePage437,
	0x10: charmap.CodePage850,
	0x11: charmap.CodePage437,
	0x12: charmap.CodePage850,
	0x13: charmap.CodePage437,
	0x14: charmap.CodePage850,
	0x15: charmap.CodePage437,
	0x16: charmap.CodePage850,
	0x17: charmap.CodePage865,
	0x18: charmap.CodePage437,
	0x19: charmap.CodePage437,
	0x1A: charmap.CodePage850,
	0x1B: charmap.CodePage437,
	0x1D: charmap.CodePage850,
	0x1F: charmap.CodePage852,
	0x22: charmap.CodePage852,
	0x23: charmap.CodePage852,
	0x24: charmap.CodePage860,
	0x25: charmap.CodePage850,
	0x26: charmap.CodePage866,
	0x37: charmap.CodePage850,
	0x40: charmap.CodePage852,
	0x4D: charmap.Windows1252,
	0x4E: charmap.Windows1252,
	0x4F: charmap.Windows1252,
	0x50: charmap.Windows1252,
	0x57: charmap.ISO8859_1,
	0x58: charmap.Windows1252,
	0x59: charmap.Windows1252,
	0x64: charmap.CodePage852,
	0x65: charmap.CodePage866,
	0x66: charmap.CodePage865,
	0x6A: charmap.CodePage437,
	0x78: charmap.Windows1252,
	0x7D: charmap.Windows1255,
	0x7E: charmap.Windows1256,
	0x87: charmap.CodePage852,
	0xC8: charmap.Windows1250,
	0xC9: charmap.Windows1251,
	0xCA: charmap.Windows1254,
	0xCB: charmap.Windows1253,
	0xCC: charmap.Windows1257,
}

// Charset picks the attribute text decoder: the .cpg contents if present and
// recognized, else the dBASE language driver ID, else ISO-8859-1.
func Charset(cpg []byte, ldid byte) *encoding.Decoder {
	if enc, ok := cpgEncoding(string(cpg)); ok {
		return enc.NewDecoder()
	}
	if enc, ok := languageDrivers[ldid]; ok {
		return enc.NewDecoder()
	}
	return charmap.ISO8859_1.NewDecoder()
}

func cpgEncoding(cpg string) (encoding.Encoding, bool) {
	name := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(cpg, "\xef\xbb\xbf")))
	if name == "" {
		return nil, false
	}
	switch name {
	case "UTF-8", "UTF8":
		return unicode.UTF8, true
	}
	for _, prefix := range []string{"ANSI ", "CP", "OEM ", "WINDOWS-", "IBM"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			name = strings.TrimSpace(rest)
			break
		}
	}
	if enc, ok := codePages[strings.NewReplacer("-", "", " ", "", "ISO", "").Replace(name)]; ok {
		return enc, true
	}
	enc, err := ianaindex.IANA.Encoding(strings.TrimSpace(cpg))
	if err != nil || enc == nil {
		return nil, false
	}
	return enc, true
}
