// Package extracttest builds small PDF documents for tests.
package extracttest

import (
	"fmt"
	"strings"
)

// TextPDF returns a one-page PDF that shows text in Helvetica.
func TextPDF(text string) []byte {
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	return onePage("/F1 5 0 R", "BT\n/F1 12 Tf\n72 720 Td\n("+escaped+") Tj\nET",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
}

// Type0PDF returns a one-page PDF that shows glyphs, a hex string of
// two-byte glyph IDs, in an Identity-H subset font. With toUnicode set the
// font maps glyphs 0x0003 to space and 0x0024..0x003D to A..Z.
func Type0PDF(glyphs string, toUnicode bool) []byte {
	type0 := "<< /Type /Font /Subtype /Type0 /BaseFont /AAAAAA+Arial /Encoding /Identity-H /DescendantFonts [6 0 R] >>"
	if toUnicode {
		type0 = strings.Replace(type0, " >>", " /ToUnicode 8 0 R >>", 1)
	}
	objs := []string{
		type0,
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /AAAAAA+Arial /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor 7 0 R /CIDToGIDMap /Identity /DW 1000 >>",
		"<< /Type /FontDescriptor /FontName /AAAAAA+Arial /Flags 32 /FontBBox [0 -200 1000 900] /ItalicAngle 0 /Ascent 900 /Descent -200 /CapHeight 700 /StemV 80 >>",
	}
	if toUnicode {
		cmap := strings.Join([]string{
			"/CIDInit /ProcSet findresource begin",
			"12 dict begin",
			"begincmap",
			"/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def",
			"/CMapName /Adobe-Identity-UCS def",
			"/CMapType 2 def",
			"1 begincodespacerange",
			"<0000> <FFFF>",
			"endcodespacerange",
			"1 beginbfchar",
			"<0003> <0020>",
			"endbfchar",
			"1 beginbfrange",
			"<0024> <003D> <0041>",
			"endbfrange",
			"endcmap",
			"CMapName currentdict /CMap defineresource pop",
			"end",
			"end",
		}, "\n")
		objs = append(objs, stream(cmap))
	}
	return onePage("/F1 5 0 R", "BT\n/F1 12 Tf\n72 720 Td\n<"+glyphs+"> Tj\nET", objs...)
}

// ImagePDF returns a one-page PDF that only draws an image.
func ImagePDF() []byte {
	img := "\xff\xd8\xff\xe0"
	return Build([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << /Im1 4 0 R >> >> /Contents 5 0 R >>",
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream", len(img), img),
		stream("q 100 0 0 100 72 692 cm /Im1 Do Q"),
	})
}

// onePage lays out catalog, pages, page and content as objects 1 to 4;
// fonts start at object 5.
func onePage(fontRes, content string, fonts ...string) []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << " + fontRes + " >> >> >>",
		stream(content),
	}
	return Build(append(objs, fonts...))
}

func stream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

// Build numbers objs from 1 and writes a classic xref table with correct
// byte offsets.
func Build(objs []string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	return []byte(b.String())
}
