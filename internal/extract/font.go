package extract

import (
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxRange caps the codes one bfrange line may expand to.
const maxRange = 1 << 16

// font decodes strings shown in one page font.
type font struct {
	composite bool // Type0, codes are CIDs
	toUnicode *cmap
}

// decode maps string bytes to text. A nil font means the content selected
// no known font; its strings are decoded as a simple encoding.
func (f *font) decode(b []byte) string {
	switch {
	case f == nil:
		return decodeBytes(b)
	case f.toUnicode != nil:
		return f.toUnicode.decode(b)
	case f.composite:
		// CIDs carry no text without a ToUnicode map.
		return ""
	}
	return decodeBytes(b)
}

// pageFonts resolves the fonts in a page's resources by resource name.
// Fonts that cannot be resolved are left out.
func pageFonts(ctx *model.Context, pageNr int) map[string]*font {
	_, _, attrs, err := ctx.PageDict(pageNr, false)
	if err != nil || attrs == nil || attrs.Resources == nil {
		return nil
	}
	obj, found := attrs.Resources.Find("Font")
	if !found {
		return nil
	}
	dict, err := ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return nil
	}

	fonts := make(map[string]*font, len(dict))
	for name, ref := range dict {
		fd, err := ctx.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		fonts[name] = loadFont(ctx, fd)
	}
	return fonts
}

func loadFont(ctx *model.Context, fd types.Dict) *font {
	f := &font{}
	if subtype := fd.NameEntry("Subtype"); subtype != nil && *subtype == "Type0" {
		f.composite = true
	}

	obj, found := fd.Find("ToUnicode")
	if !found {
		return f
	}
	// A ToUnicode name (Identity-H in some writers) is not a usable map.
	sd, _, err := ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return f
	}
	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			return f
		}
	}
	f.toUnicode = parseCMap(sd.Content, f.composite)
	return f
}

// cmap maps character codes to Unicode text.
type cmap struct {
	codeLen int // bytes per code
	m       map[uint32]string
}

func (c *cmap) decode(b []byte) string {
	var sb strings.Builder
	for i := 0; i+c.codeLen <= len(b); i += c.codeLen {
		if s, ok := c.m[code(b[i:i+c.codeLen])]; ok {
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// parseCMap reads the codespace, bfchar and bfrange sections of a ToUnicode
// CMap. Other operators are ignored.
func parseCMap(data []byte, composite bool) *cmap {
	c := &cmap{m: make(map[uint32]string)}

	var (
		section string
		args    [][]byte
		array   [][]byte
		inArray bool
	)

	for i := 0; i < len(data); {
		ch := data[i]
		switch {
		case isWhite(ch):
			i++
		case ch == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case ch == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case ch == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case ch == '<':
			b, n := readHex(data[i:])
			i += n
			if inArray {
				array = append(array, b)
				continue
			}
			args = append(args, b)
			switch {
			case section == "codespacerange" && len(args) == 2:
				c.codeLen = len(args[0])
				args = args[:0]
			case section == "bfchar" && len(args) == 2:
				c.setLen(len(args[0]))
				c.m[code(args[0])] = utf16BE(args[1])
				args = args[:0]
			case section == "bfrange" && len(args) == 3:
				c.setLen(len(args[0]))
				c.addRange(code(args[0]), code(args[1]), args[2])
				args = args[:0]
			}
		case ch == '[':
			inArray = true
			array = array[:0]
			i++
		case ch == ']':
			inArray = false
			i++
			if section == "bfrange" && len(args) == 2 {
				c.setLen(len(args[0]))
				lo, hi := code(args[0]), code(args[1])
				for k, dst := range array {
					if lo+uint32(k) > hi {
						break
					}
					c.m[lo+uint32(k)] = utf16BE(dst)
				}
				args = args[:0]
			}
		case ch == '(':
			_, n := readLiteral(data[i:])
			i += n
		default:
			start := i
			for i < len(data) && !isWhite(data[i]) && !isDelim(data[i]) {
				i++
			}
			if i == start {
				i++
				continue
			}
			switch tok := string(data[start:i]); tok {
			case "begincodespacerange", "beginbfchar", "beginbfrange":
				section = strings.TrimPrefix(tok, "begin")
				args = args[:0]
			case "endcodespacerange", "endbfchar", "endbfrange":
				section = ""
				args = args[:0]
			}
		}
	}

	if c.codeLen == 0 {
		c.codeLen = 1
		if composite {
			c.codeLen = 2
		}
	}
	return c
}

func (c *cmap) setLen(n int) {
	if c.codeLen == 0 && n > 0 && n <= 4 {
		c.codeLen = n
	}
}

// addRange maps lo..hi to dst with its last UTF-16 unit incremented.
func (c *cmap) addRange(lo, hi uint32, dst []byte) {
	if hi < lo || hi-lo >= maxRange {
		return
	}
	units := utf16Units(dst)
	if len(units) == 0 {
		return
	}
	last := len(units) - 1
	base := units[last]
	for k := uint32(0); k <= hi-lo; k++ {
		units[last] = base + uint16(k)
		c.m[lo+k] = string(utf16.Decode(units))
	}
}

func code(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16Units(b []byte) []uint16 {
	u := make([]uint16, 0, len(b)/2)
	for k := 0; k+1 < len(b); k += 2 {
		u = append(u, uint16(b[k])<<8|uint16(b[k+1]))
	}
	return u
}

func utf16BE(b []byte) string {
	return string(utf16.Decode(utf16Units(b)))
}
