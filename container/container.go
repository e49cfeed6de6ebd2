// Package container reads and writes the AT*/PKDPX compression containers:
// short headers that name the codec used for their payload and carry the
// sizes needed to decompress it.
package container

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrUnknownMagic = errors.New("container: unknown container magic")
	ErrTruncated    = errors.New("container: data shorter than header")
	ErrTooLarge     = errors.New("container: payload too large for header field")
	ErrNoUsableKind = errors.New("container: no compression kind produced output")
)

// Kind identifies a container format.
type Kind int

const (
	AT4PN Kind = iota // stored, no compression
	AT3PX             // PX, no decompressed size field
	AT4PX             // PX, 16-bit decompressed size
	ATUPX             // nibble stream, 32-bit decompressed size
	PKDPX             // PX, 32-bit decompressed size

	// Debug containers wrapping the raw map and tile codecs.
	GenericNRL
	BMACollisionRLE
	BMALayerNRL
	BPCImage
	BPCTilemap
)

var kindNames = map[Kind]string{
	AT4PN:           "AT4PN",
	AT3PX:           "AT3PX",
	AT4PX:           "AT4PX",
	ATUPX:           "ATUPX",
	PKDPX:           "PKDPX",
	GenericNRL:      "GENNRL",
	BMACollisionRLE: "BMARLE",
	BMALayerNRL:     "BMANRL",
	BPCImage:        "BPCIMG",
	BPCTilemap:      "BPCTLM",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Compression kind lists for CompressBest. The 3-series targets the earlier
// game generation, where AT4PX is not readable; the 4-series the later one.
// MustCompress excludes the stored format for callers that require the
// output to actually be a compressed stream.
var (
	Best3         = []Kind{AT4PN, ATUPX, AT3PX, PKDPX}
	Best4         = []Kind{AT4PN, ATUPX, AT4PX, PKDPX}
	MustCompress3 = []Kind{ATUPX, AT3PX, PKDPX}
	MustCompress4 = []Kind{ATUPX, AT4PX, PKDPX}
	PKDOnly       = []Kind{PKDPX}
)

// Container is a parsed or freshly compressed payload with its header data.
type Container interface {
	// Kind reports the container format.
	Kind() Kind
	// Decompress expands the payload.
	Decompress() ([]byte, error)
	// Bytes serializes the container, header included.
	Bytes() []byte
	// ContainerSize is the serialized size in bytes.
	ContainerSize() int
}

// Compress compresses data into a container of the given kind.
func Compress(kind Kind, src []byte) (Container, error) {
	switch kind {
	case AT4PN:
		return CompressAT4PN(src)
	case AT3PX:
		return CompressAT3PX(src)
	case AT4PX:
		return CompressAT4PX(src)
	case ATUPX:
		return CompressATUPX(src)
	case PKDPX:
		return CompressPKDPX(src)
	case GenericNRL, BMACollisionRLE, BMALayerNRL, BPCImage, BPCTilemap:
		return CompressDebug(kind, src)
	}
	return nil, fmt.Errorf("container: compress: unknown kind %d", int(kind))
}

// Parse reads the container starting at data[offset], detecting its format
// from the magic.
func Parse(data []byte, offset int) (Container, error) {
	if offset < 0 || offset > len(data) {
		return nil, fmt.Errorf("%w: offset %d in %d bytes", ErrTruncated, offset, len(data))
	}
	d := data[offset:]
	switch {
	case bytes.HasPrefix(d, magicAT4PN):
		return ParseAT4PN(d)
	case bytes.HasPrefix(d, magicAT3PX):
		return ParseAT3PX(d)
	case bytes.HasPrefix(d, magicAT4PX):
		return ParseAT4PX(d)
	case bytes.HasPrefix(d, magicATUPX):
		return ParseATUPX(d)
	case bytes.HasPrefix(d, magicPKDPX):
		return ParsePKDPX(d)
	}
	for _, kind := range []Kind{GenericNRL, BMACollisionRLE, BMALayerNRL, BPCImage, BPCTilemap} {
		if bytes.HasPrefix(d, []byte(kindNames[kind])) {
			return ParseDebug(kind, d)
		}
	}
	return nil, ErrUnknownMagic
}

// Decompress detects the container at data[offset] and expands its payload.
func Decompress(data []byte, offset int) ([]byte, error) {
	c, err := Parse(data, offset)
	if err != nil {
		return nil, err
	}
	return c.Decompress()
}

// ContainerSize reports the serialized size of the container starting at
// data[offset] without parsing the payload.
func ContainerSize(data []byte, offset int) (int, error) {
	c, err := Parse(data, offset)
	if err != nil {
		return 0, err
	}
	return c.ContainerSize(), nil
}

// CompressBest compresses data with every kind in the list and returns the
// serialized form of the smallest result. Kinds that cannot represent the
// data are skipped; if none succeeds, the combined errors are returned.
func CompressBest(src []byte, kinds []Kind) ([]byte, error) {
	var best []byte
	var errs error
	for _, kind := range kinds {
		c, err := Compress(kind, src)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		if b := c.Bytes(); best == nil || len(b) < len(best) {
			best = b
		}
	}
	if best == nil {
		if errs != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoUsableKind, errs)
		}
		return nil, ErrNoUsableKind
	}
	return best, nil
}
