package compression

import (
	"bytes"
	"testing"
)

func TestNRLCompressKnownVector(t *testing.T) {
	// Seven zeros then a one: a zero-run command followed by a fill run.
	src := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	got := NRLCompress(src)
	want := []byte{0x06, 0x80, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("NRLCompress(%v) = %#v, want %#v", src, got, want)
	}
}

func TestNRLRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{"empty", nil},
		{"single zero", []byte{0}},
		{"single byte", []byte{0x42}},
		{"all zeros short", bytes.Repeat([]byte{0}, 17)},
		{"all zeros long", bytes.Repeat([]byte{0}, 1000)},
		{"all same nonzero", bytes.Repeat([]byte{7}, 300)},
		{"no repeats", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"literal then run", []byte{1, 2, 3, 4, 9, 9, 9, 9, 9, 9}},
		{"run then literal", []byte{9, 9, 9, 9, 9, 9, 1, 2, 3, 4}},
		{"alternating", bytes.Repeat([]byte{0xAA, 0x55}, 64)},
		{"long literal", mustRamp(200)},
		{"zeros interleaved", []byte{0, 0, 1, 0, 0, 2, 0, 0, 0, 0, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			comp := NRLCompress(tc.src)
			got, err := NRLDecompress(comp, len(tc.src))
			if err != nil {
				t.Fatalf("NRLDecompress: %v", err)
			}
			if !bytes.Equal(got, tc.src) {
				t.Fatalf("round trip mismatch: got %v, want %v", got, tc.src)
			}
		})
	}
}

// mustRamp returns n bytes counting upward, so no element repeats enough to
// form a run.
func mustRamp(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestNRLRunSplitting(t *testing.T) {
	// Zero runs cap at 128 elements per command, fill runs at 64. The
	// command stream must decompose long runs accordingly.
	t.Run("zeros", func(t *testing.T) {
		comp := NRLCompress(bytes.Repeat([]byte{0}, 1000))
		total := 0
		for _, cmd := range comp {
			if cmd >= runCmdFill {
				t.Fatalf("unexpected command %#x in all-zero stream", cmd)
			}
			total += int(cmd) + 1
		}
		if total != 1000 {
			t.Fatalf("zero-run commands cover %d elements, want 1000", total)
		}
	})
	t.Run("nonzero", func(t *testing.T) {
		comp := NRLCompress(bytes.Repeat([]byte{5}, 1000))
		total := 0
		for i := 0; i < len(comp); i += 2 {
			cmd := comp[i]
			if cmd < runCmdFill || cmd >= runCmdCopy {
				t.Fatalf("unexpected command %#x in fill stream", cmd)
			}
			if comp[i+1] != 5 {
				t.Fatalf("fill element %#x, want 5", comp[i+1])
			}
			total += int(cmd-runCmdFill) + 1
		}
		if total != 1000 {
			t.Fatalf("fill commands cover %d elements, want 1000", total)
		}
	})
}

func TestNRLDecompressErrors(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		size int
	}{
		{"fill missing element", []byte{0x80}, 1},
		{"copy missing bytes", []byte{0xC2, 1, 2}, 3},
		{"output too short", []byte{0x02}, 10},
		{"output too long", []byte{0x7F, 0x7F}, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NRLDecompress(tc.src, tc.size); err == nil {
				t.Fatalf("NRLDecompress(%v, %d) succeeded, want error", tc.src, tc.size)
			}
		})
	}
}

func TestLiteralRunKeepsOneRepeat(t *testing.T) {
	// A literal breaks when an element shows up five times in a row; the
	// first occurrence stays inside the literal.
	src := []byte{1, 2, 3, 4, 9, 9, 9, 9, 9, 9}
	comp := NRLCompress(src)
	if len(comp) == 0 || comp[0] < runCmdCopy {
		t.Fatalf("expected leading copy command, got %#v", comp)
	}
	n := int(comp[0]-runCmdCopy) + 1
	if n != 5 {
		t.Fatalf("literal covers %d elements, want 5", n)
	}
	got, err := NRLDecompress(comp, len(src))
	if err != nil {
		t.Fatalf("NRLDecompress: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, src)
	}
}
