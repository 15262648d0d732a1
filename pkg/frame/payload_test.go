package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat32Exact(t *testing.T) {
	b := NewWriter(0x04, 2).Float32(50.0).Bytes()
	require.Equal(t, []byte{0x04, 2, 0x00, 0x00, 0x48, 0x42}, b)
	r := NewReader(b)
	require.Equal(t, byte(0x04), r.Byte())
	require.Equal(t, byte(2), r.Byte())
	require.Equal(t, float32(50.0), r.Float32())
	require.NoError(t, r.Err())
	require.Equal(t, float32(50.0), GetFloat32(b[2:]))
}

func TestWriterReader(t *testing.T) {
	b := NewWriter().
		Bool(true).
		Uint16(0x1234).
		Uint32(0xdeadbeef).
		Int32(-2).
		Int64(-1 << 40).
		String("v1.2.0").
		Raw([]byte{9, 8}).
		Bytes()
	require.Equal(t, []byte{0x34, 0x12}, b[1:3])

	r := NewReader(b)
	require.True(t, r.Bool())
	require.Equal(t, uint16(0x1234), r.Uint16())
	require.Equal(t, uint32(0xdeadbeef), r.Uint32())
	require.Equal(t, int32(-2), r.Int32())
	require.Equal(t, int64(-1<<40), r.Int64())
	require.Equal(t, "v1.2.0", r.String())
	require.Equal(t, 2, r.Len())
	require.Equal(t, []byte{9, 8}, r.Rest())
	require.NoError(t, r.Err())

	require.Zero(t, r.Uint32())
	require.Equal(t, ErrShortPayload, r.Err())
	require.Zero(t, r.Byte())
}
