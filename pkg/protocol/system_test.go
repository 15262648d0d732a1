package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAnnounceLayout(t *testing.T) {
	a := Announce{Type: TypeDiscrete, Serial: 0x01020304}
	require.Equal(t, []byte{1, 0, 4, 3, 2, 1}, a.Bytes())
	back, err := ParseAnnounce(a.Bytes())
	require.NoError(t, err)
	require.Equal(t, a, back)
	_, err = ParseAnnounce([]byte{1, 0, 4})
	require.Error(t, err)
}

func TestBoardInfo(t *testing.T) {
	info := BoardInfo{
		Type:            TypeMixed,
		Variant:         2,
		Serial:          4242,
		ManufacturedAt:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		SoftwareVersion: "1.4.0",
	}
	back, err := ParseBoardInfo(info.Bytes())
	require.NoError(t, err)
	require.Equal(t, info, back)
}

func TestLED(t *testing.T) {
	l := LED{State: LEDBlink, Color: LEDGreen, Period: time.Second}
	require.Equal(t, []byte{2, 2, 0xe8, 0x03, 0, 0}, l.Bytes())
	back, err := ParseLED(l.Bytes())
	require.NoError(t, err)
	require.Equal(t, l, back)
}

func TestNames(t *testing.T) {
	require.Equal(t, "REQUEST", OpName(OpRequest))
	require.Equal(t, "UNKNOWN", OpName(0x99))
	require.Equal(t, "mixed", TypeName(TypeMixed))
	require.Equal(t, "type-99", TypeName(99))
}
