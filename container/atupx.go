package container

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/compression"
	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// ATUPX: nibble-stream payload with a 32-bit decompressed size.
//
//	0x00  magic "ATUPX"
//	0x05  u16  container size
//	0x07  u32  decompressed size
//	0x0B  payload

var magicATUPX = []byte("ATUPX")

const atupxDataStart = 0x0B

// ATUPXContainer holds a parsed or freshly compressed ATUPX container.
type ATUPXContainer struct {
	DecompressedSize uint32
	Data             []byte
}

// CompressATUPX compresses data into an ATUPX container.
func CompressATUPX(src []byte) (*ATUPXContainer, error) {
	nine := compression.Custom999Compress(src)
	if atupxDataStart+len(nine) > 0xffff {
		return nil, fmt.Errorf("%w: %d compressed bytes", ErrTooLarge, len(nine))
	}
	return &ATUPXContainer{
		DecompressedSize: uint32(len(src)),
		Data:             nine,
	}, nil
}

// ParseATUPX reads an ATUPX container from the start of data.
func ParseATUPX(data []byte) (*ATUPXContainer, error) {
	r := bytesio.NewReader(data)
	if err := r.Skip(len(magicATUPX)); err != nil {
		return nil, ErrTruncated
	}
	lenComp, err := r.ReadUint16()
	if err != nil {
		return nil, ErrTruncated
	}
	c := &ATUPXContainer{}
	if c.DecompressedSize, err = r.ReadUint32(); err != nil {
		return nil, ErrTruncated
	}
	if c.Data, err = r.ReadBytes(int(lenComp) - atupxDataStart); err != nil {
		return nil, fmt.Errorf("%w: container size %d", ErrTruncated, lenComp)
	}
	return c, nil
}

func (c *ATUPXContainer) Kind() Kind { return ATUPX }

func (c *ATUPXContainer) Decompress() ([]byte, error) {
	return compression.Custom999Decompress(c.Data, int(c.DecompressedSize))
}

func (c *ATUPXContainer) Bytes() []byte {
	s := bytesio.NewSink(c.ContainerSize())
	s.PutBytes(magicATUPX)
	s.PutUint16(uint16(c.ContainerSize()))
	s.PutUint32(c.DecompressedSize)
	s.PutBytes(c.Data)
	return s.Bytes()
}

func (c *ATUPXContainer) ContainerSize() int { return atupxDataStart + len(c.Data) }
