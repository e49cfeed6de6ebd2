package compression

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// The BPC image codec compresses packed 4-bit pixel rows with a two-register
// pattern memory. Command bytes fall into four families:
//
//	0x00..0x7D  copy the next (cmd + 1) source bytes
//	0x7E        copy, count in the next byte
//	0x7F        copy, count in the next little-endian 16-bit value
//	0x80..0xBE  load the next byte as the new pattern, emit (cmd - 0x80 + 1)
//	0xBF        load pattern, count in the next byte
//	0xC0..0xDE  re-emit the current pattern (cmd - 0xC0 + 1)
//	0xDF        re-emit, count in the next byte
//	0xE0..0xFE  swap the two pattern registers, emit (cmd - 0xE0 + 1)
//	0xFF        swap and emit, count in the next byte
//
// Loading a pattern shifts the current register into the buffer register;
// cycling swaps the two without transmitting a value, so the encoder and
// decoder must mutate their registers in lock-step. The decoder works in
// 16-bit words while the counts are byte-oriented, which produces the
// odd/even leftover half-word bookkeeping reproduced below.
const (
	bpcImgCmdLoadPattern  = 0x80
	bpcImgCmdUsePattern   = 0xC0
	bpcImgCmdCyclePattern = 0xE0

	bpcImgCmdCopyNext         = 0x7E
	bpcImgCmdCopyNext16       = 0x7F
	bpcImgCmdLoadPatternNext  = 0xBF
	bpcImgCmdUsePatternNext   = 0xDF
	bpcImgCmdCyclePatternNext = 0xFF

	// Counts that still fit the command byte itself. The -1/-2 leave room
	// for the escape values above.
	bpcImgMaxRepeatCmd     = 31 - 1
	bpcImgMaxRepeatCmdLoad = 63 - 1
	bpcImgMaxRepeatNext    = 254
	bpcImgMaxCopyCmd       = 127 - 2
	bpcImgMaxCopyNext      = 255

	bpcImgMinRepeat = 3
)

type bpcImageCompressor struct {
	src     []byte
	pos     int
	out     *bytesio.Sink
	pattern byte // current pattern register, kept in sync with the decoder
	buffer  byte // previous pattern register
}

// BPCImageCompress compresses packed pixel data. The data length must be
// even, since the decompressor works in 16-bit words.
func BPCImageCompress(src []byte) ([]byte, error) {
	if len(src)%2 != 0 {
		return nil, fmt.Errorf("%w: image data must be an even number of bytes, got %d", ErrUnevenLength, len(src))
	}
	c := &bpcImageCompressor{src: src, out: bytesio.NewSink(len(src) * 2)}
	for c.pos < len(c.src) {
		c.step()
	}
	return c.out.Bytes(), nil
}

func (c *bpcImageCompressor) step() {
	b, repeats := c.lookAheadRepeats()
	if repeats >= bpcImgMinRepeat {
		c.pos += repeats + 1
		c.patternOp(b, repeats)
		return
	}
	seq := c.lookAheadSequence()
	c.pos += len(seq)
	c.copyOp(seq)
}

// lookAheadRepeats counts how often the byte at the cursor repeats after its
// first occurrence, up to bpcImgMaxRepeatNext.
func (c *bpcImageCompressor) lookAheadRepeats() (byte, int) {
	b := c.src[c.pos]
	repeats := 0
	for c.pos+1+repeats < len(c.src) && c.src[c.pos+1+repeats] == b && repeats < bpcImgMaxRepeatNext {
		repeats++
	}
	return b, repeats
}

// lookAheadSequence collects the literal run starting at the cursor, ending
// just before a byte repeats five times in a row (the literal keeps the first
// of the repeats).
func (c *bpcImageCompressor) lookAheadSequence() []byte {
	start := c.pos
	length := 0
	repeat := 0
	var prev byte
	havePrev := false
	for {
		b := c.src[start+length]
		if havePrev && b == prev {
			repeat++
		} else {
			repeat = 0
		}
		prev, havePrev = b, true
		length++
		if repeat > bpcImgMinRepeat {
			length -= bpcImgMinRepeat + 1
			break
		}
		if length+1 >= 0xffff || start+length >= len(c.src) {
			break
		}
	}
	return c.src[start : start+length]
}

func (c *bpcImageCompressor) patternOp(b byte, repeats int) {
	var base byte
	var escape byte
	writeByte := false
	switch {
	case b == c.pattern:
		base, escape = bpcImgCmdUsePattern, bpcImgCmdUsePatternNext
	case b == c.buffer:
		base, escape = bpcImgCmdCyclePattern, bpcImgCmdCyclePatternNext
		// The decoder swaps its registers on this command.
		c.pattern, c.buffer = c.buffer, c.pattern
	default:
		base, escape = bpcImgCmdLoadPattern, bpcImgCmdLoadPatternNext
		writeByte = true
		c.buffer = c.pattern
		c.pattern = b
	}

	if repeats <= bpcImgMaxRepeatCmd || (writeByte && repeats <= bpcImgMaxRepeatCmdLoad) {
		c.out.PutByte(base + byte(repeats))
	} else {
		c.out.PutByte(escape)
		c.out.PutByte(byte(repeats))
	}
	if writeByte {
		c.out.PutByte(b)
	}
}

func (c *bpcImageCompressor) copyOp(seq []byte) {
	repeats := len(seq) - 1
	switch {
	case repeats <= bpcImgMaxCopyCmd:
		c.out.PutByte(byte(repeats))
	case repeats <= bpcImgMaxCopyNext:
		c.out.PutByte(bpcImgCmdCopyNext)
		c.out.PutByte(byte(repeats))
	default:
		c.out.PutByte(bpcImgCmdCopyNext16)
		c.out.PutUint16(uint16(repeats))
	}
	c.out.PutBytes(seq)
}

type bpcImageDecompressor struct {
	r           *bytesio.Reader
	out         []byte
	stopSize    int
	hasLeftover bool
	leftover    uint16
	pattern     uint16
	buffer      uint16
}

// BPCImageDecompress decompresses packed pixel data to exactly expectedSize
// bytes. expectedSize must be even. A pending leftover half-word may satisfy
// a deficit of one or two bytes once the source is exhausted; any other
// shortfall is an error.
func BPCImageDecompress(src []byte, expectedSize int) ([]byte, error) {
	if expectedSize%2 != 0 {
		return nil, fmt.Errorf("%w: image length must be even, got %d", ErrUnevenLength, expectedSize)
	}
	d := &bpcImageDecompressor{
		r:        bytesio.NewReader(src),
		out:      make([]byte, 0, expectedSize),
		stopSize: expectedSize,
	}
	for len(d.out) < d.stopSize {
		if d.r.Len() == 0 {
			// A pending leftover may cover the last word.
			if d.hasLeftover {
				switch d.stopSize - len(d.out) {
				case 2:
					d.out = append(d.out, byte(d.leftover), byte(d.leftover>>8))
					return d.out, nil
				case 1:
					d.out = append(d.out, byte(d.leftover))
					return d.out, nil
				}
			}
			return nil, fmt.Errorf("%w: have %d of %d bytes", ErrTruncated, len(d.out), d.stopSize)
		}
		if err := d.step(); err != nil {
			return nil, err
		}
	}
	if len(d.out) != d.stopSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(d.out), d.stopSize)
	}
	return d.out, nil
}

func (d *bpcImageDecompressor) step() error {
	cmd, err := d.r.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	nb, err := d.readCount(cmd)
	if err != nil {
		return err
	}

	if bpcImgShouldCycle(cmd) {
		d.pattern, d.buffer = d.buffer, d.pattern
	}
	if bpcImgLoadsPattern(cmd) {
		b, err := d.r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		d.pattern = uint16(b)
	}

	// The counts are stored minus one: an even count means the command is
	// one byte short of a full word, so the first byte of its final word
	// is held back as a leftover and merged with the next command.
	if d.hasLeftover {
		if err := d.mergeLeftover(cmd); err != nil {
			return err
		}
	}
	if nb >= 0 {
		return d.mainOp(cmd, nb)
	}
	return nil
}

func (d *bpcImageDecompressor) mergeLeftover(cmd byte) error {
	var final uint16
	if bpcImgIsPatternOp(cmd) {
		final = d.leftover | d.pattern<<8
	} else {
		b, err := d.r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		final = d.leftover | uint16(b)<<8
	}
	d.out = append(d.out, byte(final), byte(final>>8))
	d.hasLeftover = false
	return nil
}

func (d *bpcImageDecompressor) mainOp(cmd byte, nb int) error {
	if bpcImgIsPatternOp(cmd) {
		word := d.pattern | d.pattern<<8
		for k := 0; k < nb; k += 2 {
			d.out = append(d.out, byte(word), byte(word>>8))
		}
	} else {
		for k := 0; k < nb; k += 2 {
			lo, err := d.r.ReadByte()
			if err != nil {
				return ErrTruncated
			}
			hi, err := d.r.ReadByte()
			if err != nil {
				return ErrTruncated
			}
			d.out = append(d.out, lo, hi)
		}
	}

	if nb%2 == 0 {
		d.hasLeftover = true
		if bpcImgIsPatternOp(cmd) {
			d.leftover = d.pattern
		} else {
			b, err := d.r.ReadByte()
			if err != nil {
				return ErrTruncated
			}
			d.leftover = uint16(b)
		}
	}
	return nil
}

// readCount extracts the byte count from the command, consuming escape
// operands. A pending leftover consumes one word of the count.
func (d *bpcImageDecompressor) readCount(cmd byte) (int, error) {
	var nb int
	switch cmd {
	case bpcImgCmdCopyNext, bpcImgCmdLoadPatternNext, bpcImgCmdUsePatternNext, bpcImgCmdCyclePatternNext:
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, ErrTruncated
		}
		nb = int(b)
	case bpcImgCmdCopyNext16:
		v, err := d.r.ReadUint16()
		if err != nil {
			return 0, ErrTruncated
		}
		nb = int(v)
	default:
		switch {
		case cmd >= bpcImgCmdCyclePattern:
			nb = int(cmd - bpcImgCmdCyclePattern)
		case cmd >= bpcImgCmdUsePattern:
			nb = int(cmd - bpcImgCmdUsePattern)
		case cmd >= bpcImgCmdLoadPattern:
			nb = int(cmd - bpcImgCmdLoadPattern)
		default:
			nb = int(cmd)
		}
	}
	if d.hasLeftover {
		nb--
	}
	return nb, nil
}

func bpcImgShouldCycle(cmd byte) bool {
	return bpcImgLoadsPattern(cmd) || cmd >= bpcImgCmdCyclePattern
}

func bpcImgLoadsPattern(cmd byte) bool {
	return cmd >= bpcImgCmdLoadPattern && cmd < bpcImgCmdUsePattern
}

func bpcImgIsPatternOp(cmd byte) bool {
	return cmd >= bpcImgCmdLoadPattern
}
