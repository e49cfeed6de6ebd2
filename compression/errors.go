// Package compression implements the compression codecs used by the ppmdu
// container formats: the generic run-length engine and its byte, paired-word
// and tile-map instantiations, the collision-grid run codec, the BPC tile
// image pattern codec, the PX sliding-window compressor and the Custom999
// differential nibble codec.
//
// All codecs are pure functions over caller-owned byte slices. Compressors
// take the decompressed data and return the compressed payload (without any
// container header); decompressors take the payload plus the declared
// decompressed size and must reproduce exactly that many bytes.
package compression

import "errors"

// Errors shared by the codecs.
var (
	// ErrTruncated is returned when the compressed source runs out before
	// the declared decompressed length has been produced.
	ErrTruncated = errors.New("compression: source exhausted before declared length")

	// ErrLengthMismatch is returned when a decode pass produces a different
	// number of bytes than the declared decompressed length.
	ErrLengthMismatch = errors.New("compression: decoded length does not match declared length")

	// ErrOutOfBounds is returned when a backward reference points outside
	// the already-decoded output.
	ErrOutOfBounds = errors.New("compression: backward reference out of bounds")

	// ErrCapacityOverflow is returned when a value does not fit its
	// container field, e.g. a compressed payload larger than 64 KiB.
	ErrCapacityOverflow = errors.New("compression: size exceeds container field capacity")

	// ErrUnevenLength is returned by the word-oriented codecs when the data
	// length is not a multiple of the element size.
	ErrUnevenLength = errors.New("compression: data length is not a multiple of the element size")
)
