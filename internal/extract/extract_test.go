package extract

import (
	"bytes"
	"testing"

	"github.com/mfenderov/doccorpus/internal/extract/extracttest"
)

func TestExtractor_TextPDF(t *testing.T) {
	e := New(Config{})

	got, err := e.ExtractText(bytes.NewReader(extracttest.TextPDF("Hello")))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "Hello" {
		t.Errorf("ExtractText() = %q, want %q", got, "Hello")
	}
}

func TestExtractor_CorruptInputYieldsEmptyText(t *testing.T) {
	e := New(Config{})

	inputs := map[string][]byte{
		"garbage":   []byte("this is not a pdf at all"),
		"empty":     {},
		"truncated": extracttest.TextPDF("Hello")[:40],
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := e.ExtractText(bytes.NewReader(data)); err == nil {
				t.Error("ExtractText() should report an error")
			}
			if got := e.Text(name+".pdf", bytes.NewReader(data)); got != "" {
				t.Errorf("Text() = %q, want empty", got)
			}
		})
	}
}

func TestExtractor_ImageOnlyPDFHasNoText(t *testing.T) {
	e := New(Config{})

	if got := e.Text("scan.pdf", bytes.NewReader(extracttest.ImagePDF())); got != "" {
		t.Errorf("Text() = %q, want empty for an image-only page", got)
	}
}

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "simple Tj",
			stream: "BT /F1 12 Tf 72 720 Td (Hello) Tj ET",
			want:   "Hello",
		},
		{
			name:   "TJ with kerning gap",
			stream: "BT [(Hel) -20 (lo) -300 (World)] TJ ET",
			want:   "Hello World",
		},
		{
			name:   "escapes and nested parens",
			stream: `BT (a \(b\) \\ c (d)) Tj ET`,
			want:   `a (b) \ c (d)`,
		},
		{
			name:   "octal escape",
			stream: `BT (caf\351) Tj ET`,
			want:   "café",
		},
		{
			name:   "hex string",
			stream: "BT <48656C6C6F> Tj ET",
			want:   "Hello",
		},
		{
			name:   "utf-16 hex string",
			stream: "BT <FEFF00480069> Tj ET",
			want:   "Hi",
		},
		{
			name:   "next-line operators",
			stream: "BT (first) Tj T* (second) Tj (third) ' ET",
			want:   "first\nsecond\nthird",
		},
		{
			name:   "text blocks are separate lines",
			stream: "BT (one) Tj ET BT (two) Tj ET",
			want:   "one\ntwo",
		},
		{
			name:   "inline image skipped",
			stream: "BI /W 1 /H 1 ID \x00(\xff) EI BT (after) Tj ET",
			want:   "after",
		},
		{
			name:   "dictionary operands ignored",
			stream: "/Span <</MCID 0>> BDC BT (marked) Tj ET EMC",
			want:   "marked",
		},
		{
			name:   "no text operators",
			stream: "q 100 0 0 100 72 692 cm /Im1 Do Q",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeContent([]byte(tt.stream), nil); got != tt.want {
				t.Errorf("decodeContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := normalize("  a \t b \n\n\x01c  \n   ")
	if got != "a b\nc" {
		t.Errorf("normalize() = %q, want %q", got, "a b\nc")
	}
}

// helloWorld is "HELLO WORLD" as glyph IDs of the Type0 fixture font.
const helloWorld = "002B0028002F002F00320003003A00320035002F0027"

func TestExtractor_Type0Font(t *testing.T) {
	e := New(Config{})

	got, err := e.ExtractText(bytes.NewReader(extracttest.Type0PDF(helloWorld, true)))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "HELLO WORLD" {
		t.Errorf("ExtractText() = %q, want %q", got, "HELLO WORLD")
	}
}

func TestExtractor_Type0FontWithoutToUnicode(t *testing.T) {
	e := New(Config{})

	got := e.Text("cid.pdf", bytes.NewReader(extracttest.Type0PDF(helloWorld, false)))
	if got != "" {
		t.Errorf("Text() = %q, want empty for unmapped glyph IDs", got)
	}
}

func TestDecodeContent_Fonts(t *testing.T) {
	cmap := parseCMap([]byte(`
1 begincodespacerange <0000> <FFFF> endcodespacerange
2 beginbfchar <0003> <0020> <0011> <00E9> endbfchar
2 beginbfrange <0024> <003D> <0041> <0050> <0052> [<0066> <00660069> <0078>] endbfrange`), true)

	fonts := map[string]*font{
		"F1": {},
		"F2": {composite: true},
		"F3": {composite: true, toUnicode: cmap},
	}

	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{"simple font", "BT /F1 12 Tf (Hello) Tj ET", "Hello"},
		{"cids without map", "BT /F2 12 Tf <0048006500740074> Tj ET", ""},
		{"cids with map", "BT /F3 12 Tf <002B00280003003A> Tj ET", "HE W"},
		{"bfchar", "BT /F3 12 Tf <0011> Tj ET", "é"},
		{"bfrange array", "BT /F3 12 Tf <005000510052> Tj ET", "ffix"},
		{"font switch", "BT /F3 9 Tf <002B> Tj /F1 9 Tf (ello) Tj ET", "Hello"},
		{"unknown font", "BT /F9 12 Tf (plain) Tj ET", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeContent([]byte(tt.stream), fonts); got != tt.want {
				t.Errorf("decodeContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCMap_CodeLength(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		composite bool
		want      int
	}{
		{"codespace", "1 begincodespacerange <00> <FF> endcodespacerange", true, 1},
		{"from bfchar", "1 beginbfchar <0041> <0041> endbfchar", false, 2},
		{"composite default", "", true, 2},
		{"simple default", "", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseCMap([]byte(tt.data), tt.composite).codeLen; got != tt.want {
				t.Errorf("codeLen = %d, want %d", got, tt.want)
			}
		})
	}
}
