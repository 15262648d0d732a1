package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderWord(t *testing.T) {
	testCases := []struct {
		name   string
		header Header
		word   uint16
	}{
		{"broadcast", Header{}, 0},
		{"request", Header{ID: 5, Dir: MasterToSlave, Ack: true}, 0x1805},
		{"response", Header{ID: 5}, 0x0005},
		{"nack", Header{ID: 0x7ff, Error: true}, 0x27ff},
		{"reserved", Header{ID: 1, Reserved: 3}, 0xc001},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.word, tc.header.Word())
			require.Equal(t, tc.header, HeaderFromWord(tc.word))
		})
	}
}

func TestEncode(t *testing.T) {
	b, err := Encode(0x06, Header{ID: 5, Dir: MasterToSlave, Ack: true}, []byte{0x07, 0x03})
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0x06, 0x18, 0x05, 0x02, 0x00, 0xe3, 0x07, 0x03}, b)

	b, err = Encode(0x02, Header{}, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0x02, 0, 0, 0, 0, 0xfc}, b)

	_, err = Encode(0x06, Header{ID: 1}, make([]byte, MaxPayload+1))
	require.Equal(t, ErrPayloadTooLarge, err)
	_, err = Encode(0x06, Header{ID: MaxID + 1}, nil)
	require.Equal(t, ErrInvalidID, err)
}

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{nil, {0}, {0xaa, 0xaa}, make([]byte, 300), make([]byte, MaxPayload)}
	for i := range payloads[3] {
		payloads[3][i] = byte(i)
	}
	headers := []Header{
		{},
		{ID: 1, Dir: MasterToSlave, Ack: true},
		{ID: 20, Error: true},
		{ID: MaxID, Dir: MasterToSlave, Reserved: 2},
	}
	for _, h := range headers {
		for _, p := range payloads {
			for _, op := range []byte{0x00, 0x06, 0xaa, 0xff} {
				b, err := Encode(op, h, p)
				require.NoError(t, err)
				f, n, err := Decode(b)
				require.NoError(t, err)
				require.Equal(t, len(b), n)
				require.Equal(t, op, f.Opcode)
				require.Equal(t, h, f.Header)
				if len(p) == 0 {
					require.Empty(t, f.Payload)
				} else {
					require.Equal(t, p, f.Payload)
				}
			}
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	good, err := Encode(0x06, Header{ID: 5, Dir: MasterToSlave, Ack: true}, []byte{0x07, 0x03})
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, n, err := Decode(nil)
		require.Equal(t, ErrTruncated, err)
		require.Zero(t, n)
	})
	t.Run("truncated header", func(t *testing.T) {
		_, n, err := Decode(good[:5])
		require.Equal(t, ErrTruncated, err)
		require.Zero(t, n)
	})
	t.Run("truncated payload", func(t *testing.T) {
		_, n, err := Decode(good[:len(good)-1])
		require.Equal(t, ErrTruncated, err)
		require.Zero(t, n)
	})
	t.Run("garbage", func(t *testing.T) {
		_, n, err := Decode(append([]byte{1, 2, 3}, good...))
		var syncErr *SyncError
		require.True(t, errors.As(err, &syncErr))
		require.Equal(t, 3, syncErr.Skipped)
		require.Equal(t, 3, n)
	})
	t.Run("no sync", func(t *testing.T) {
		_, n, err := Decode([]byte{1, 2, 3})
		require.IsType(t, &SyncError{}, err)
		require.Equal(t, 3, n)
	})
	t.Run("length too large", func(t *testing.T) {
		_, n, err := Decode([]byte{0xaa, 0x06, 0, 0, 0xff, 0xff, 0})
		require.Equal(t, ErrPayloadTooLarge, err)
		require.Equal(t, 1, n)
	})
}

func TestSingleBitCorruption(t *testing.T) {
	good, err := Encode(0x06, Header{ID: 5, Dir: MasterToSlave, Ack: true}, []byte{0x07, 0x03, 0x41, 0x42})
	require.NoError(t, err)
	for i := 1; i < len(good); i++ {
		for bit := uint(0); bit < 8; bit++ {
			b := append([]byte(nil), good...)
			b[i] ^= 1 << bit
			f, _, err := Decode(b)
			require.Nilf(t, f, "byte %d bit %d", i, bit)
			require.Errorf(t, err, "byte %d bit %d", i, bit)
			if i != 4 && i != 5 {
				require.IsTypef(t, &ChecksumError{}, err, "byte %d bit %d", i, bit)
			}
		}
	}
}
