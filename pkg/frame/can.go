package frame

// CANMaxPayload is the payload capacity of a CAN frame after the opcode.
const CANMaxPayload = 7

// CANFrame is a classic CAN data frame with an extended identifier.
type CANFrame struct {
	ID   uint32
	Len  uint8
	Data [8]byte
}

// ToCAN converts a frame into its CAN form. The header word becomes the
// identifier so id, direction, ack and error survive the conversion.
func ToCAN(f *Frame) (c CANFrame, err error) {
	if len(f.Payload) > CANMaxPayload {
		return c, ErrPayloadTooLarge
	}
	if f.ID > MaxID {
		return c, ErrInvalidID
	}
	c.ID = uint32(f.Header.Word())
	c.Len = uint8(1 + len(f.Payload))
	c.Data[0] = f.Opcode
	copy(c.Data[1:], f.Payload)
	return c, nil
}

// FromCAN converts a CAN frame back into a frame.
func FromCAN(c CANFrame) (*Frame, error) {
	if c.Len == 0 {
		return nil, ErrTruncated
	}
	if c.Len > 8 {
		return nil, ErrPayloadTooLarge
	}
	f := &Frame{
		Opcode: c.Data[0],
		Header: HeaderFromWord(uint16(c.ID)),
	}
	if c.Len > 1 {
		f.Payload = append([]byte(nil), c.Data[1:c.Len]...)
	}
	return f, nil
}
