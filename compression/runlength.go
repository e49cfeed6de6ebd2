package compression

import (
	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// The run-length engine encodes three kinds of commands, distinguished by the
// command byte's range:
//
//	0x00..0x7F  zero run:  emit (cmd + 1) null elements
//	0x80..0xBF  fill run:  one element follows, emit it (cmd - 0x80 + 1) times
//	0xC0..0xFF  copy run:  (cmd - 0xC0 + 1) raw elements follow
//
// The same engine serves three concrete formats that only differ in their
// element type: single bytes, 4-byte word pairs stored packed as 3 bytes, and
// the tile-map codec's byte planes.
const (
	runCmdFill = 0x80
	runCmdCopy = 0xC0

	runMaxZero = 127 // zero-run count per command
	runMaxFill = 63  // fill-run count per command
	runMaxCopy = 63  // copy-run element budget (lookahead stops one short)

	runMinLen = 3 // repeats below this stay in a literal run
)

// elemSeq is a random-access view of the decompressed stream, in elements.
type elemSeq[E comparable] interface {
	Len() int
	At(i int) E
}

// elemCodec translates one element type to and from the compressed stream.
type elemCodec[E comparable] interface {
	Null() E
	Put(s *bytesio.Sink, e E)
	Read(r *bytesio.Reader) (E, error)
}

// elemWriter receives decompressed elements.
type elemWriter[E comparable] interface {
	Write(e E)
}

// literalRunLength returns the length of the literal run starting at element
// i: the run ends once an element occurs five times in a row (keeping the
// first of the repeats in the literal) and never exceeds runMaxCopy-1
// elements or the end of the sequence.
func literalRunLength[E comparable](seq elemSeq[E], i int) int {
	n := seq.Len()
	length := 0
	repeat := 0
	var prev E
	havePrev := false
	for {
		e := seq.At(i + length)
		if havePrev && e == prev {
			repeat++
		} else {
			repeat = 0
		}
		prev, havePrev = e, true
		length++
		if repeat > runMinLen {
			return length - runMinLen - 1
		}
		if length+1 >= runMaxCopy || i+length >= n {
			return length
		}
	}
}

// runLengthCompress encodes the whole sequence into sink.
func runLengthCompress[E comparable](seq elemSeq[E], codec elemCodec[E], sink *bytesio.Sink) {
	null := codec.Null()
	n := seq.Len()
	for i := 0; i < n; {
		lit := literalRunLength(seq, i)
		if lit > runMinLen {
			sink.PutByte(runCmdCopy + byte(lit-1))
			for j := 0; j < lit; j++ {
				codec.Put(sink, seq.At(i+j))
			}
			i += lit
			continue
		}

		e := seq.At(i)
		repeats := 0
		for i+1+repeats < n && repeats < runMaxZero && seq.At(i+1+repeats) == e {
			repeats++
		}
		i += repeats + 1

		switch {
		case e == null:
			sink.PutByte(byte(repeats))
		case repeats > runMaxFill:
			// Doesn't fit one command; split into two fill runs that
			// together cover repeats+1 elements.
			first := repeats - runMaxFill
			sink.PutByte(runCmdFill + byte(first) - 1)
			codec.Put(sink, e)
			sink.PutByte(runCmdFill + byte(repeats-first))
			codec.Put(sink, e)
		default:
			sink.PutByte(runCmdFill + byte(repeats))
			codec.Put(sink, e)
		}
	}
}

// runLengthDecompressStep decodes a single command from r into w.
func runLengthDecompressStep[E comparable](r *bytesio.Reader, codec elemCodec[E], w elemWriter[E]) error {
	cmd, err := r.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	switch {
	case cmd < runCmdFill:
		null := codec.Null()
		for j := 0; j <= int(cmd); j++ {
			w.Write(null)
		}
	case cmd < runCmdCopy:
		e, err := codec.Read(r)
		if err != nil {
			return ErrTruncated
		}
		for j := 0; j <= int(cmd-runCmdFill); j++ {
			w.Write(e)
		}
	default:
		for j := 0; j <= int(cmd-runCmdCopy); j++ {
			e, err := codec.Read(r)
			if err != nil {
				return ErrTruncated
			}
			w.Write(e)
		}
	}
	return nil
}
