package container

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() []byte {
	// Mixed content: runs, matches and literals.
	var b []byte
	b = append(b, bytes.Repeat([]byte{0}, 64)...)
	b = append(b, bytes.Repeat([]byte("tile-data"), 16)...)
	b = append(b, bytes.Repeat([]byte{0x11}, 40)...)
	for i := 0; i < 64; i++ {
		b = append(b, byte(i), byte(i%7))
	}
	return b
}

func TestContainerRoundTrip(t *testing.T) {
	src := testPayload()
	for _, kind := range []Kind{AT4PN, AT3PX, AT4PX, ATUPX, PKDPX} {
		t.Run(kind.String(), func(t *testing.T) {
			c, err := Compress(kind, src)
			require.NoError(t, err)
			assert.Equal(t, kind, c.Kind())

			raw := c.Bytes()
			assert.Equal(t, c.ContainerSize(), len(raw))

			parsed, err := Parse(raw, 0)
			require.NoError(t, err)
			assert.Equal(t, kind, parsed.Kind())

			got, err := parsed.Decompress()
			require.NoError(t, err)
			assert.Equal(t, src, got)
		})
	}
}

func TestDebugContainerRoundTrip(t *testing.T) {
	payloads := map[Kind][]byte{
		GenericNRL:      append(bytes.Repeat([]byte{0}, 30), 1, 2, 3, 3, 3, 3, 3, 3),
		BMACollisionRLE: bytes.Repeat([]byte{0, 0, 1, 1, 1, 0}, 20),
		BMALayerNRL:     wordBytes(0x001, 0x002, 0x001, 0x002, 0, 0, 0, 0, 0x123, 0x456),
		BPCImage:        bytes.Repeat([]byte{0xAB}, 64),
		BPCTilemap:      wordBytes(0x100, 0x100, 0x100, 0x003, 0x003, 0),
	}
	for kind, src := range payloads {
		t.Run(kind.String(), func(t *testing.T) {
			c, err := Compress(kind, src)
			require.NoError(t, err)

			raw := c.Bytes()
			assert.Equal(t, []byte(kind.String()), raw[:6])

			parsed, err := Parse(raw, 0)
			require.NoError(t, err)
			assert.Equal(t, kind, parsed.Kind())

			got, err := parsed.Decompress()
			require.NoError(t, err)
			assert.Equal(t, src, got)
		})
	}
}

func wordBytes(words ...uint16) []byte {
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = append(out, byte(w), byte(w>>8))
	}
	return out
}

func TestContainerSizeMatchesSerialization(t *testing.T) {
	src := testPayload()
	for _, kind := range []Kind{AT4PN, AT3PX, AT4PX, ATUPX, PKDPX, GenericNRL, BPCImage} {
		c, err := Compress(kind, src)
		require.NoError(t, err, "kind %s", kind)
		raw := c.Bytes()
		size, err := ContainerSize(raw, 0)
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, len(raw), size, "kind %s", kind)
	}
}

func TestParseAtOffset(t *testing.T) {
	src := testPayload()
	c, err := Compress(AT4PX, src)
	require.NoError(t, err)

	buf := append([]byte("some leading data"), c.Bytes()...)
	got, err := Decompress(buf, 17)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestParseUnknownMagic(t *testing.T) {
	_, err := Parse([]byte("XXXXX\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"), 0)
	assert.ErrorIs(t, err, ErrUnknownMagic)

	_, err = Parse(nil, 0)
	assert.ErrorIs(t, err, ErrUnknownMagic)

	_, err = Parse([]byte{1, 2, 3}, 7)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseTruncatedHeader(t *testing.T) {
	c, err := Compress(PKDPX, testPayload())
	require.NoError(t, err)
	raw := c.Bytes()

	_, err = Parse(raw[:8], 0)
	assert.ErrorIs(t, err, ErrTruncated)

	// Header intact but payload cut short of the declared container size.
	_, err = Parse(raw[:len(raw)-4], 0)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestAT4PNSizeLimit(t *testing.T) {
	_, err := CompressAT4PN(make([]byte, 0x10000))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = CompressAT4PN(make([]byte, 0xffff))
	assert.NoError(t, err)
}

func TestCompressBest(t *testing.T) {
	src := testPayload()

	best, err := CompressBest(src, Best4)
	require.NoError(t, err)

	// The result must itself be a valid container.
	got, err := Decompress(best, 0)
	require.NoError(t, err)
	assert.Equal(t, src, got)

	// And no listed kind may beat it.
	for _, kind := range Best4 {
		c, err := Compress(kind, src)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(c.Bytes()), len(best), "kind %s", kind)
	}
}

func TestCompressBestMustCompress(t *testing.T) {
	src := testPayload()
	best, err := CompressBest(src, MustCompress4)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(best, magicAT4PN))

	got, err := Decompress(best, 0)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestCompressBestNoKinds(t *testing.T) {
	_, err := CompressBest(testPayload(), nil)
	assert.ErrorIs(t, err, ErrNoUsableKind)
}
