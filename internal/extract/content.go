package extract

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"
)

// kernSpace is the TJ displacement (thousandths of an em) past which a
// gap is rendered as a word break.
const kernSpace = -180

// piece is one shown string, still in the font's encoding, or a word gap.
type piece struct {
	raw []byte
	gap bool
}

// decodeContent walks a page content stream and returns the strings shown
// by text operators, with line breaks where the stream moves to a new line.
// Strings are decoded with the font selected by the last Tf; fonts may be
// nil.
func decodeContent(data []byte, fonts map[string]*font) string {
	var (
		sb       strings.Builder
		operands []piece
		name     string // last name operand
		current  *font
		depth    int // array nesting
	)

	emit := func(newline bool) {
		if newline {
			sb.WriteByte('\n')
		}
		for _, p := range operands {
			if p.gap {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(current.decode(p.raw))
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isWhite(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			b, n := readLiteral(data[i:])
			operands = append(operands, piece{raw: b})
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			b, n := readHex(data[i:])
			operands = append(operands, piece{raw: b})
			i += n
		case c == '[':
			depth++
			i++
		case c == ']':
			if depth > 0 {
				depth--
			}
			i++
		case c == '{' || c == '}' || c == '>' || c == ')':
			i++
		case c == '/':
			i++
			start := i
			for i < len(data) && !isWhite(data[i]) && !isDelim(data[i]) {
				i++
			}
			name = string(data[start:i])
		default:
			start := i
			for i < len(data) && !isWhite(data[i]) && !isDelim(data[i]) {
				i++
			}
			tok := string(data[start:i])

			if v, err := strconv.ParseFloat(tok, 64); err == nil {
				if depth > 0 && v < kernSpace {
					operands = append(operands, piece{gap: true})
				}
				continue
			}

			switch tok {
			case "Tf":
				current = fonts[name]
			case "Tj", "TJ":
				emit(false)
			case "'", `"`:
				emit(true)
			case "T*", "ET":
				sb.WriteByte('\n')
			case "Td", "TD", "Tm":
				sb.WriteByte(' ')
			case "ID":
				i = skipInlineImage(data, i)
			}
			operands = operands[:0]
			name = ""
		}
	}

	return normalize(sb.String())
}

// readLiteral reads a (...) string starting at data[0] and returns its
// bytes with the number of bytes consumed.
func readLiteral(data []byte) ([]byte, int) {
	var buf []byte
	nest := 0
	i := 1
	for ; i < len(data); i++ {
		c := data[i]
		switch c {
		case '\\':
			i++
			if i >= len(data) {
				break
			}
			switch e := data[i]; e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					buf = append(buf, byte(v))
				} else {
					buf = append(buf, e)
				}
			}
		case '(':
			nest++
			buf = append(buf, c)
		case ')':
			if nest == 0 {
				return buf, i + 1
			}
			nest--
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
	}
	return buf, len(data)
}

// readHex reads a <...> string starting at data[0].
func readHex(data []byte) ([]byte, int) {
	end := bytes.IndexByte(data, '>')
	if end < 0 {
		end = len(data)
	}
	var digits []byte
	for _, c := range data[1:end] {
		if unhex(c) >= 0 {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	buf := make([]byte, 0, len(digits)/2)
	for k := 0; k < len(digits); k += 2 {
		buf = append(buf, byte(unhex(digits[k])<<4|unhex(digits[k+1])))
	}
	n := end + 1
	if n > len(data) {
		n = len(data)
	}
	return buf, n
}

// decodeBytes maps raw string bytes to text: UTF-16BE when the string
// carries a byte order mark, otherwise one rune per byte.
func decodeBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return utf16BE(b[2:])
	}
	r := make([]rune, len(b))
	for k, c := range b {
		r[k] = rune(c)
	}
	return string(r)
}

// skipInlineImage moves past binary inline image data up to "EI".
func skipInlineImage(data []byte, i int) int {
	for ; i+2 < len(data); i++ {
		if isWhite(data[i]) && data[i+1] == 'E' && data[i+2] == 'I' &&
			(i+3 == len(data) || isWhite(data[i+3])) {
			return i + 3
		}
	}
	return len(data)
}

// normalize collapses whitespace inside lines, drops unprintable runes
// and empty lines.
func normalize(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			if !unicode.IsPrint(r) {
				return -1
			}
			return r
		}, line)
		if fields := strings.Fields(line); len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " "))
		}
	}
	return strings.Join(lines, "\n")
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
