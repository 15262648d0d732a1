package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCAN(t *testing.T) {
	f := &Frame{
		Opcode:  0x07,
		Header:  Header{ID: 9, Error: true},
		Payload: []byte{0, 1, 2, 3, 4, 5, 6},
	}
	c, err := ToCAN(f)
	require.NoError(t, err)
	require.Equal(t, uint32(0x2009), c.ID)
	require.Equal(t, uint8(8), c.Len)
	require.Equal(t, byte(0x07), c.Data[0])

	back, err := FromCAN(c)
	require.NoError(t, err)
	require.Equal(t, f, back)

	f.Payload = append(f.Payload, 7)
	_, err = ToCAN(f)
	require.Equal(t, ErrPayloadTooLarge, err)

	_, err = FromCAN(CANFrame{})
	require.Equal(t, ErrTruncated, err)

	back, err = FromCAN(CANFrame{ID: 0x1805, Len: 1, Data: [8]byte{0x02}})
	require.NoError(t, err)
	require.Equal(t, &Frame{Opcode: 0x02, Header: Header{ID: 5, Dir: MasterToSlave, Ack: true}}, back)
}
