package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseHandshakePayload_MarshalUnmarshal_RoundTrip(t *testing.T) {
	p := &NoiseHandshakePayload{
		IdentityKey: []byte{1, 0x01, 0x02, 0x03},
		IdentitySig: bytesOfLen(64),
		Extensions: &NoiseExtensions{
			WebtransportCerthashes: [][]byte{{0xaa, 0xbb}, {0xcc}},
		},
	}

	data, err := p.Marshal()
	require.NoError(t, err)

	got := &NoiseHandshakePayload{}
	require.NoError(t, got.Unmarshal(data))

	assert.Equal(t, p.IdentityKey, got.IdentityKey)
	assert.Equal(t, p.IdentitySig, got.IdentitySig)
	require.NotNil(t, got.Extensions)
	assert.Equal(t, p.Extensions.WebtransportCerthashes, got.Extensions.WebtransportCerthashes)
}

func TestNoiseHandshakePayload_NoExtensions(t *testing.T) {
	p := &NoiseHandshakePayload{
		IdentityKey: []byte{1, 2, 3},
		IdentitySig: []byte{4, 5, 6},
	}

	data, err := p.Marshal()
	require.NoError(t, err)

	got := &NoiseHandshakePayload{}
	require.NoError(t, got.Unmarshal(data))
	assert.Nil(t, got.Extensions)
}

func TestNoiseHandshakePayload_UnknownFieldsIgnored(t *testing.T) {
	p := &NoiseHandshakePayload{IdentityKey: []byte{9, 9}}
	data, err := p.Marshal()
	require.NoError(t, err)

	// append an unknown length-delimited field (number 7).
	unknown := appendTag(nil, 7, wireBytes)
	unknown = appendVarint(unknown, 3)
	unknown = append(unknown, []byte("xyz")...)
	data = append(data, unknown...)

	got := &NoiseHandshakePayload{}
	require.NoError(t, got.Unmarshal(data))
	assert.Equal(t, p.IdentityKey, got.IdentityKey)
}

func TestNoiseHandshakePayload_Unmarshal_TruncatedLengthErrors(t *testing.T) {
	data := appendTag(nil, 1, wireBytes)
	data = appendVarint(data, 10)
	data = append(data, []byte("short")...)

	got := &NoiseHandshakePayload{}
	assert.ErrorIs(t, got.Unmarshal(data), ErrInvalidPayload)
}

func TestVarint_RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40} {
		buf := appendVarint(nil, v)
		got, n, ok := consumeVarint(buf)
		require.True(t, ok)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func bytesOfLen(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}
