package container

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/compression"
	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// Debug containers wrap the raw map and tile codecs, which normally live
// headerless inside larger files, in a minimal header so they can be stored
// and inspected standalone:
//
//	0x00  magic, 6 bytes naming the codec
//	0x06  u16  decompressed size
//	0x08  payload

const debugDataStart = 8

type debugCodec struct {
	compress   func([]byte) ([]byte, error)
	decompress func([]byte, int) ([]byte, error)
}

var debugCodecs = map[Kind]debugCodec{
	GenericNRL: {
		compress:   func(src []byte) ([]byte, error) { return compression.NRLCompress(src), nil },
		decompress: compression.NRLDecompress,
	},
	BMACollisionRLE: {
		compress:   func(src []byte) ([]byte, error) { return compression.BMACollisionCompress(src), nil },
		decompress: compression.BMACollisionDecompress,
	},
	BMALayerNRL: {
		compress:   compression.BMALayerCompress,
		decompress: compression.BMALayerDecompress,
	},
	BPCImage: {
		compress:   compression.BPCImageCompress,
		decompress: compression.BPCImageDecompress,
	},
	BPCTilemap: {
		compress:   compression.BPCTilemapCompress,
		decompress: compression.BPCTilemapDecompress,
	},
}

// DebugContainer wraps one of the raw codecs' streams.
type DebugContainer struct {
	kind             Kind
	DecompressedSize uint16
	Data             []byte
}

// CompressDebug compresses data into a debug container of the given kind.
func CompressDebug(kind Kind, src []byte) (*DebugContainer, error) {
	codec, ok := debugCodecs[kind]
	if !ok {
		return nil, fmt.Errorf("container: %s is not a debug kind", kind)
	}
	if len(src) > 0xffff {
		return nil, fmt.Errorf("%w: %d decompressed bytes", ErrTooLarge, len(src))
	}
	comp, err := codec.compress(src)
	if err != nil {
		return nil, err
	}
	return &DebugContainer{
		kind:             kind,
		DecompressedSize: uint16(len(src)),
		Data:             comp,
	}, nil
}

// ParseDebug reads a debug container of the given kind from the start of
// data. The payload runs to the end of the buffer; debug headers carry no
// container size.
func ParseDebug(kind Kind, data []byte) (*DebugContainer, error) {
	if _, ok := debugCodecs[kind]; !ok {
		return nil, fmt.Errorf("container: %s is not a debug kind", kind)
	}
	r := bytesio.NewReader(data)
	if err := r.Skip(len(kindNames[kind])); err != nil {
		return nil, ErrTruncated
	}
	c := &DebugContainer{kind: kind}
	var err error
	if c.DecompressedSize, err = r.ReadUint16(); err != nil {
		return nil, ErrTruncated
	}
	if c.Data, err = r.ReadBytes(r.Len()); err != nil {
		return nil, ErrTruncated
	}
	return c, nil
}

func (c *DebugContainer) Kind() Kind { return c.kind }

func (c *DebugContainer) Decompress() ([]byte, error) {
	return debugCodecs[c.kind].decompress(c.Data, int(c.DecompressedSize))
}

func (c *DebugContainer) Bytes() []byte {
	s := bytesio.NewSink(c.ContainerSize())
	s.PutBytes([]byte(kindNames[c.kind]))
	s.PutUint16(c.DecompressedSize)
	s.PutBytes(c.Data)
	return s.Bytes()
}

func (c *DebugContainer) ContainerSize() int { return debugDataStart + len(c.Data) }
