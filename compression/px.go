package compression

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// PX is the general-purpose compressor behind the AT3PX, AT4PX and PKDPX
// containers. The stream is a series of 8-element blocks: each block starts
// with a control byte whose bits (MSB first) flag which of the next 8
// elements are stored as-is. Every other element starts with a nibble pair:
// if the high nibble is one of the 9 control flag values listed in the
// container header, the low nibble expands to a 4-nibble pattern (optionally
// with one nibble adjusted by one); otherwise the high nibble is a match
// length code and the low nibble plus the following byte form a backward
// offset into the sliding window.
//
// Match lengths and the 9 control flags share the 16-value nibble space, so
// the compressor reserves length codes greedily during the pass and computes
// the flag values at the end.
const (
	pxWindowSize = 4096
	pxMinMatch   = 3
	pxMaxMatch   = 18

	// 9 control flags leave 7 nibble values for match length codes.
	pxMaxLengthCodes = 7
)

// PXLevel selects how much work the compressor does.
type PXLevel int

const (
	// PXLevel0 stores everything as-is (all control bytes 0xFF).
	PXLevel0 PXLevel = iota
	// PXLevel1 packs 4-identical-nibble pairs.
	PXLevel1
	// PXLevel2 adds the nibble-manipulation packings.
	PXLevel2
	// PXLevel3 adds sliding-window matches.
	PXLevel3
)

// pxOpType enumerates the element encodings. Values 0 through 8 double as
// indexes into the control flag table.
type pxOpType int8

const (
	pxOpCopyAsIs pxOpType = iota - 1
	pxOpFourNibbles
	pxOpIncrAllDecrNibble0
	pxOpDecrNibble1
	pxOpDecrNibble2
	pxOpDecrNibble3
	pxOpDecrAllIncrNibble0
	pxOpIncrNibble1
	pxOpIncrNibble2
	pxOpIncrNibble3
	pxOpSequence
)

type pxOp struct {
	typ  pxOpType
	high byte // match length code, or high nibble of an as-is byte
	low  byte
	next byte // offset low byte for sequence ops
}

type pxCompressor struct {
	src         []byte
	pos         int
	level       PXLevel
	searchFirst bool
	ops         []pxOp
	// Reserved match length codes (match length - 3), kept sorted. Seeded
	// with 0 and 0xF so short and maximal matches are always encodable.
	lengths []int
	flags   [9]byte
}

// PXCompress compresses data at the highest level. It returns the compressed
// payload and the control flag table that must be stored with it.
func PXCompress(src []byte) ([]byte, [9]byte, error) {
	return PXCompressLevel(src, PXLevel3, true)
}

// PXCompressLevel compresses data at the given level. searchFirst prefers
// window matches over nibble packings when both apply.
func PXCompressLevel(src []byte, level PXLevel, searchFirst bool) ([]byte, [9]byte, error) {
	c := &pxCompressor{
		src:         src,
		level:       level,
		searchFirst: searchFirst,
		ops:         make([]pxOp, 0, len(src)),
		lengths:     []int{0, 0xF},
	}
	for c.pos < len(c.src) {
		c.ops = append(c.ops, c.bestOperation())
	}
	c.buildFlags()

	pad := 0
	if len(src)%8 != 0 {
		pad = 1
	}
	sink := bytesio.NewSink(len(src) + len(src)/8 + pad)
	c.emit(sink)

	if sink.Len() > 0xffff {
		return nil, c.flags, fmt.Errorf("%w: compressed size %d overflows 16 bits", ErrCapacityOverflow, sink.Len())
	}
	return sink.Bytes(), c.flags, nil
}

func (c *pxCompressor) bestOperation() pxOp {
	op := pxOp{typ: pxOpCopyAsIs}
	switch {
	case c.searchFirst && c.level >= PXLevel3 && c.matchSequence(&op):
		c.pos += int(op.high) + pxMinMatch
	case (c.level >= PXLevel1 && c.fourEqualNibbles(&op)) ||
		(c.level >= PXLevel2 && c.fourNearNibbles(&op)):
		c.pos += 2
	case !c.searchFirst && c.level >= PXLevel3 && c.matchSequence(&op):
		c.pos += int(op.high) + pxMinMatch
	default:
		b := c.src[c.pos]
		c.pos++
		op.high = b >> 4
		op.low = b & 0xF
	}
	return op
}

// fourEqualNibbles reports whether the next two bytes consist of four
// identical nibbles, which pack into a single byte.
func (c *pxCompressor) fourEqualNibbles(op *pxOp) bool {
	if c.pos+2 > len(c.src) {
		return false
	}
	low := c.src[c.pos+1] & 0xF
	both := uint16(c.src[c.pos])<<8 | uint16(c.src[c.pos+1])
	for i := 0; i < 4; i++ {
		if byte(both>>(4*i))&0xF != low {
			return false
		}
	}
	op.typ = pxOpFourNibbles
	op.low = low
	return true
}

// fourNearNibbles reports whether the next two bytes can pack into one byte
// using a manipulation flag: three of the four nibbles share a value and the
// fourth differs from it by exactly one.
func (c *pxCompressor) fourNearNibbles(op *pxOp) bool {
	if c.pos+2 > len(c.src) {
		return false
	}
	nibbles := [4]byte{
		c.src[c.pos] >> 4, c.src[c.pos] & 0xF,
		c.src[c.pos+1] >> 4, c.src[c.pos+1] & 0xF,
	}
	var matches [4]int
	for i := range nibbles {
		for j := range nibbles {
			if nibbles[j] == nibbles[i] {
				matches[i]++
			}
		}
	}
	triple := 0
	for _, m := range matches {
		if m == 3 {
			triple++
		}
	}
	if triple < 3 {
		return false
	}

	nmin, nmax := nibbles[0], nibbles[0]
	for _, n := range nibbles[1:] {
		if n < nmin {
			nmin = n
		}
		if n > nmax {
			nmax = n
		}
	}
	if nmax-nmin != 1 {
		return false
	}

	idxSmallest, idxLargest := 0, 0
	for i, n := range nibbles {
		if n == nmin {
			idxSmallest = i
			break
		}
	}
	for i, n := range nibbles {
		if n == nmax {
			idxLargest = i
			break
		}
	}

	if matches[idxSmallest] == 1 {
		// One nibble is below the other three: the decoder either
		// decrements that nibble (indexes 1-3) or increments all four
		// and decrements nibble 0.
		op.typ = pxOpIncrAllDecrNibble0 + pxOpType(idxSmallest)
		if idxSmallest == 0 {
			op.low = nibbles[idxSmallest]
		} else {
			op.low = nibbles[idxSmallest] + 1
		}
	} else {
		// One nibble is above the other three; mirrored cases.
		op.typ = pxOpDecrAllIncrNibble0 + pxOpType(idxLargest)
		if idxLargest == 0 {
			op.low = nibbles[idxLargest]
		} else {
			op.low = nibbles[idxLargest] - 1
		}
	}
	return true
}

// matchSequence searches the sliding window for the longest match of 3 to 18
// elements against the upcoming source and fills op with a sequence
// operation if one is found.
func (c *pxCompressor) matchSequence(op *pxOp) bool {
	windowStart := 0
	if c.pos > pxWindowSize {
		windowStart = c.pos - pxWindowSize
	}
	seqEnd := min(c.pos+pxMaxMatch, len(c.src))
	if seqEnd-c.pos < pxMinMatch {
		return false
	}

	matchPos, matchLen := c.findLongestMatch(windowStart, c.pos, c.pos, seqEnd)
	if matchLen < pxMinMatch {
		return false
	}

	code := matchLen - pxMinMatch
	if !c.reserveLengthCode(code) {
		// The table is full; clamp to the largest reserved code that
		// still fits the found sequence.
		for _, cand := range c.lengths {
			if cand+pxMinMatch < matchLen {
				code = cand
			}
		}
	}
	offset := matchPos - c.pos // negative
	op.typ = pxOpSequence
	op.high = byte(code)
	op.low = byte((offset >> 8) & 0xF)
	op.next = byte(offset & 0xFF)
	return true
}

// findLongestMatch scans [searchBeg, searchEnd) for the longest prefix match
// of src[findBeg:findEnd], capped at pxMaxMatch elements.
func (c *pxCompressor) findLongestMatch(searchBeg, searchEnd, findBeg, findEnd int) (int, int) {
	needle := c.src[findBeg : findBeg+pxMinMatch]
	bestPos, bestLen := searchEnd, 0
	for p := searchBeg; p < searchEnd; {
		idx := bytes.Index(c.src[p:searchEnd], needle)
		if idx < 0 {
			break
		}
		p += idx
		n := countEqual(c.src, p, min(p+pxMaxMatch, searchEnd), findBeg, findEnd)
		if n > bestLen {
			bestPos, bestLen = p, n
		}
		if n == pxMaxMatch {
			return bestPos, bestLen
		}
		p++
	}
	return bestPos, bestLen
}

// countEqual counts equal consecutive bytes between two ranges, stopping at
// the first difference or either range's end.
func countEqual(data []byte, first1, last1, first2, last2 int) int {
	count := 0
	for first1 != last1 && first2 != last2 && data[first1] == data[first2] {
		count++
		first1++
		first2++
	}
	return count
}

// reserveLengthCode records a match length code (match length - 3) in the
// shared nibble space. It reports false when the code is new but the table
// already holds pxMaxLengthCodes entries.
func (c *pxCompressor) reserveLengthCode(code int) bool {
	for _, l := range c.lengths {
		if l == code {
			return true
		}
	}
	if len(c.lengths) < pxMaxLengthCodes {
		c.lengths = append(c.lengths, code)
		sort.Ints(c.lengths)
		return true
	}
	return false
}

// buildFlags assigns the 9 control flag values to the nibbles not reserved
// as match length codes. Called once all length codes are known.
func (c *pxCompressor) buildFlags() {
	if len(c.lengths) != pxMaxLengthCodes {
		for v := 0; v < 0xF && len(c.lengths) < pxMaxLengthCodes; v++ {
			if !c.hasLength(v) {
				c.lengths = append(c.lengths, v)
			}
		}
	}
	idx := 0
	for v := 0; v < 0xF && idx < len(c.flags); v++ {
		if !c.hasLength(v) {
			c.flags[idx] = byte(v)
			idx++
		}
	}
}

func (c *pxCompressor) hasLength(v int) bool {
	for _, l := range c.lengths {
		if l == v {
			return true
		}
	}
	return false
}

// emit writes all queued operations, one control byte per block of 8.
func (c *pxCompressor) emit(sink *bytesio.Sink) {
	for blk := 0; blk < len(c.ops); blk += 8 {
		end := min(blk+8, len(c.ops))
		var control byte
		for i := blk; i < end; i++ {
			if c.ops[i].typ == pxOpCopyAsIs {
				control |= 1 << (7 - (i - blk))
			}
		}
		sink.PutByte(control)
		for i := blk; i < end; i++ {
			op := c.ops[i]
			switch op.typ {
			case pxOpCopyAsIs:
				sink.PutByte(op.high<<4 | op.low)
			case pxOpSequence:
				sink.PutByte(op.high<<4 | op.low)
				sink.PutByte(op.next)
			default:
				sink.PutByte(c.flags[op.typ]<<4 | op.low)
			}
		}
	}
}

// PXDecompress decompresses a PX payload using the 9-byte control flag table
// from the container header. expectedSize is the declared decompressed
// length; pass a negative value when the container does not declare one.
func PXDecompress(src []byte, flags []byte, expectedSize int) ([]byte, error) {
	if len(flags) != 9 {
		return nil, fmt.Errorf("%w: control flag table must be 9 bytes, got %d", ErrLengthMismatch, len(flags))
	}
	capacity := expectedSize
	if capacity < 0 {
		capacity = len(src) * 2
	}
	d := &pxDecompressor{
		r:     bytesio.NewReader(src),
		out:   make([]byte, 0, capacity),
		flags: flags,
	}
	for d.r.Len() > 0 {
		if err := d.controlBlock(); err != nil {
			return nil, err
		}
	}
	if expectedSize >= 0 && len(d.out) != expectedSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(d.out), expectedSize)
	}
	return d.out, nil
}

type pxDecompressor struct {
	r     *bytesio.Reader
	out   []byte
	flags []byte
}

func (d *pxDecompressor) controlBlock() error {
	control, err := d.r.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	for bit := 7; bit >= 0; bit-- {
		if d.r.Len() == 0 {
			return nil
		}
		if control&(1<<bit) != 0 {
			b, err := d.r.ReadByte()
			if err != nil {
				return ErrTruncated
			}
			d.out = append(d.out, b)
			continue
		}
		if err := d.packedElement(); err != nil {
			return err
		}
	}
	return nil
}

func (d *pxDecompressor) packedElement() error {
	b, err := d.r.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	hi, lo := b>>4, b&0xF
	for idx, flag := range d.flags {
		if flag == hi {
			p := pxNibblePattern(idx, lo)
			d.out = append(d.out, p[0], p[1])
			return nil
		}
	}
	return d.copySequence(lo, hi)
}

func (d *pxDecompressor) copySequence(lo, hi byte) error {
	next, err := d.r.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	offset := -0x1000 + int(lo)<<8 + int(next)
	if offset < -len(d.out) {
		return fmt.Errorf("%w: offset %d with only %d bytes decoded", ErrOutOfBounds, offset, len(d.out))
	}
	n := int(hi) + pxMinMatch
	start := len(d.out) + offset
	// Byte-wise so the copy may run into bytes it has just produced.
	for k := 0; k < n; k++ {
		d.out = append(d.out, d.out[start+k])
	}
	return nil
}

// pxNibblePattern expands a control flag index and low nibble into the two
// bytes they encode.
func pxNibblePattern(idx int, lo byte) [2]byte {
	if idx == 0 {
		n := lo<<4 | lo
		return [2]byte{n, n}
	}
	base := lo
	switch idx {
	case 1:
		base++
	case 5:
		base--
	}
	ns := [4]byte{base, base, base, base}
	if idx <= 4 {
		ns[idx-1]--
	} else {
		ns[idx-5]++
	}
	return [2]byte{ns[0]<<4 | ns[1], ns[2]<<4 | ns[3]}
}
