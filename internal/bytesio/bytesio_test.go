package bytesio

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderSequentialReads(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	r := NewReader(data)

	b, err := r.ReadByte()
	if err != nil || b != 0x01 {
		t.Fatalf("ReadByte: got %#x, %v", b, err)
	}

	v16, err := r.ReadUint16()
	if err != nil || v16 != 0x0302 {
		t.Fatalf("ReadUint16: got %#x, %v", v16, err)
	}

	v32, err := r.ReadUint32()
	if err != nil || v32 != 0x07060504 {
		t.Fatalf("ReadUint32: got %#x, %v", v32, err)
	}

	if r.Len() != 0 {
		t.Errorf("Len after full read: got %d, want 0", r.Len())
	}
}

func TestReaderBounds(t *testing.T) {
	r := NewReader([]byte{0x01})

	if _, err := r.ReadUint16(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadUint16 past end: got %v, want ErrShortBuffer", err)
	}
	if _, err := r.ReadUint32(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadUint32 past end: got %v, want ErrShortBuffer", err)
	}
	if err := r.Skip(2); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Skip past end: got %v, want ErrShortBuffer", err)
	}
	if err := r.Skip(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("negative Skip: got %v, want ErrNegativeSize", err)
	}
	if _, err := r.ReadBytes(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("negative ReadBytes: got %v, want ErrNegativeSize", err)
	}

	// The failed reads must not have moved the cursor.
	b, err := r.ReadByte()
	if err != nil || b != 0x01 {
		t.Fatalf("ReadByte after failed reads: got %#x, %v", b, err)
	}
}

func TestReaderSetPos(t *testing.T) {
	r := NewReader([]byte{0xaa, 0xbb, 0xcc})

	if err := r.SetPos(2); err != nil {
		t.Fatalf("SetPos(2): %v", err)
	}
	b, _ := r.ReadByte()
	if b != 0xcc {
		t.Errorf("read after SetPos: got %#x, want 0xcc", b)
	}
	if err := r.SetPos(4); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("SetPos out of range: got %v, want ErrShortBuffer", err)
	}
	if err := r.SetPos(-1); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("SetPos(-1): got %v, want ErrShortBuffer", err)
	}
}

func TestReaderReadBytesCopies(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewReader(data)
	got, err := r.ReadBytes(4)
	if err != nil {
		t.Fatal(err)
	}
	got[0] = 0xff
	if data[0] != 1 {
		t.Error("ReadBytes must not alias the source")
	}
}

func TestSinkRoundTrip(t *testing.T) {
	s := NewSink(16)
	s.PutByte(0x7f)
	s.PutUint16(0x1234)
	s.PutUint32(0xdeadbeef)
	s.PutBytes([]byte{9, 9})

	want := []byte{0x7f, 0x34, 0x12, 0xef, 0xbe, 0xad, 0xde, 9, 9}
	if !bytes.Equal(s.Bytes(), want) {
		t.Errorf("Sink contents:\ngot  %v\nwant %v", s.Bytes(), want)
	}
	if s.Len() != len(want) {
		t.Errorf("Len: got %d, want %d", s.Len(), len(want))
	}

	// Values written by the Sink must read back through the Reader.
	r := NewReader(s.Bytes())
	_, _ = r.ReadByte()
	v16, _ := r.ReadUint16()
	v32, _ := r.ReadUint32()
	if v16 != 0x1234 || v32 != 0xdeadbeef {
		t.Errorf("read-back: got %#x, %#x", v16, v32)
	}
}

func TestSinkGrowsPastCapacity(t *testing.T) {
	s := NewSink(1)
	for i := 0; i < 100; i++ {
		s.PutByte(byte(i))
	}
	if s.Len() != 100 {
		t.Errorf("Len after growth: got %d, want 100", s.Len())
	}
	if s.Bytes()[99] != 99 {
		t.Errorf("last byte: got %d, want 99", s.Bytes()[99])
	}
}
