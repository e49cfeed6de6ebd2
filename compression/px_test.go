package compression

import (
	"bytes"
	"errors"
	"testing"
)

func pxRoundTrip(t *testing.T, src []byte, level PXLevel, searchFirst bool) {
	t.Helper()
	comp, flags, err := PXCompressLevel(src, level, searchFirst)
	if err != nil {
		t.Fatalf("PXCompressLevel: %v", err)
	}
	got, err := PXDecompress(comp, flags[:], len(src))
	if err != nil {
		t.Fatalf("PXDecompress: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("round trip mismatch: got %x, want %x", got, src)
	}
}

func TestPXRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0x42}},
		{"all zeros", make([]byte, 256)},
		{"all same nibbles", bytes.Repeat([]byte{0x77}, 100)},
		{"ramp", mustRamp(300)},
		{"repeating block", bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 40)},
		{"near nibbles", []byte{0x66, 0x65, 0x66, 0x76, 0x56, 0x66}},
		{"window reach", append(make([]byte, 4100), []byte{1, 2, 3, 1, 2, 3}...)},
		{"text", bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 20)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pxRoundTrip(t, tc.src, PXLevel3, true)
		})
	}
}

func TestPXRoundTripAllLevels(t *testing.T) {
	src := bytes.Repeat([]byte("abcabcabc\x00\x00\x00\x11\x22\x33\x44"), 25)
	for level := PXLevel0; level <= PXLevel3; level++ {
		for _, searchFirst := range []bool{false, true} {
			comp, flags, err := PXCompressLevel(src, level, searchFirst)
			if err != nil {
				t.Fatalf("level %d: %v", level, err)
			}
			got, err := PXDecompress(comp, flags[:], len(src))
			if err != nil {
				t.Fatalf("level %d: PXDecompress: %v", level, err)
			}
			if !bytes.Equal(got, src) {
				t.Fatalf("level %d searchFirst=%v: round trip mismatch", level, searchFirst)
			}
		}
	}
}

func TestPXLevel0StoresVerbatim(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	comp, _, err := PXCompressLevel(src, PXLevel0, false)
	if err != nil {
		t.Fatalf("PXCompressLevel: %v", err)
	}
	// One control byte per 8 elements, everything flagged as-is.
	want := []byte{0xFF, 1, 2, 3, 4, 5, 6, 7, 8, 0x80, 9}
	if !bytes.Equal(comp, want) {
		t.Fatalf("PXCompressLevel = %#v, want %#v", comp, want)
	}
}

func TestPXFourEqualNibblesPacking(t *testing.T) {
	// 0x77 0x77 has four identical nibbles and packs into one element.
	comp, flags, err := PXCompressLevel([]byte{0x77, 0x77}, PXLevel1, false)
	if err != nil {
		t.Fatalf("PXCompressLevel: %v", err)
	}
	want := []byte{0x00, flags[0]<<4 | 0x7}
	if !bytes.Equal(comp, want) {
		t.Fatalf("PXCompressLevel = %#v, want %#v", comp, want)
	}
	got, err := PXDecompress(comp, flags[:], 2)
	if err != nil {
		t.Fatalf("PXDecompress: %v", err)
	}
	if !bytes.Equal(got, []byte{0x77, 0x77}) {
		t.Fatalf("PXDecompress = %x, want 7777", got)
	}
}

func TestPXNearNibblesPacking(t *testing.T) {
	// Each pair has three equal nibbles and one off by one, covering all
	// four positions in both directions.
	tests := [][]byte{
		{0x56, 0x66}, // nibble 0 below
		{0x65, 0x66}, // nibble 1 below
		{0x66, 0x56}, // nibble 2 below
		{0x66, 0x65}, // nibble 3 below
		{0x76, 0x66}, // nibble 0 above
		{0x67, 0x66}, // nibble 1 above
		{0x66, 0x76}, // nibble 2 above
		{0x66, 0x67}, // nibble 3 above
	}
	for _, src := range tests {
		comp, flags, err := PXCompressLevel(src, PXLevel2, false)
		if err != nil {
			t.Fatalf("PXCompressLevel(%x): %v", src, err)
		}
		if len(comp) != 2 {
			t.Fatalf("pair %x compressed to %d bytes, want 2", src, len(comp))
		}
		got, err := PXDecompress(comp, flags[:], 2)
		if err != nil {
			t.Fatalf("PXDecompress(%x): %v", src, err)
		}
		if !bytes.Equal(got, src) {
			t.Fatalf("round trip mismatch for %x: got %x", src, got)
		}
	}
}

func TestPXMatchLengthTableSaturation(t *testing.T) {
	// Force more than 7 distinct match lengths so late matches must clamp
	// to an already reserved length code.
	var src []byte
	base := []byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 11, 12, 13, 14, 15, 16, 17, 18}
	src = append(src, base...)
	for n := 4; n <= 13; n++ {
		src = append(src, 0xFE, 0xDC) // separators that never match base
		src = append(src, base[:n]...)
	}
	pxRoundTrip(t, src, PXLevel3, true)
}

func TestPXFlagsDisjointFromLengths(t *testing.T) {
	src := bytes.Repeat([]byte("abcdefabcdef"), 30)
	_, flags, err := PXCompressLevel(src, PXLevel3, true)
	if err != nil {
		t.Fatalf("PXCompressLevel: %v", err)
	}
	seen := map[byte]bool{}
	for _, f := range flags {
		if f > 0xF {
			t.Fatalf("control flag %#x out of nibble range", f)
		}
		if seen[f] {
			t.Fatalf("duplicate control flag %#x in %v", f, flags)
		}
		seen[f] = true
	}
}

func TestPXDecompressUnknownSize(t *testing.T) {
	src := bytes.Repeat([]byte{1, 2, 3, 4}, 50)
	comp, flags, err := PXCompress(src)
	if err != nil {
		t.Fatalf("PXCompress: %v", err)
	}
	got, err := PXDecompress(comp, flags[:], -1)
	if err != nil {
		t.Fatalf("PXDecompress: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("round trip mismatch without declared size")
	}
}

func TestPXDecompressErrors(t *testing.T) {
	flags := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8}
	t.Run("bad flag table", func(t *testing.T) {
		if _, err := PXDecompress(nil, []byte{1, 2, 3}, 0); err == nil {
			t.Fatal("short flag table accepted")
		}
	})
	t.Run("truncated literal", func(t *testing.T) {
		if _, err := PXDecompress([]byte{0x80}, flags, 1); err == nil {
			t.Fatal("missing literal accepted")
		}
	})
	t.Run("sequence before start", func(t *testing.T) {
		// High nibble 0xF is not a control flag here, so this decodes
		// as a backward copy with nothing yet decoded.
		_, err := PXDecompress([]byte{0x00, 0xFF, 0xFF}, flags, 3)
		if !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("got %v, want ErrOutOfBounds", err)
		}
	})
	t.Run("size mismatch", func(t *testing.T) {
		comp, fl, err := PXCompress([]byte{1, 2, 3, 4})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := PXDecompress(comp, fl[:], 3); !errors.Is(err, ErrLengthMismatch) {
			t.Fatalf("got %v, want ErrLengthMismatch", err)
		}
	})
}
