// Package frame provides the wire codec of the I/O bus.

// A frame on the serial bus is laid out as:
//
//	byte 0       sync (0xAA)
//	byte 1       opcode
//	bytes 2-3    header word, big-endian:
//	             bits 0-10 id (0 = broadcast), bit 11 direction (1 = master to slave),
//	             bit 12 ack required, bit 13 error, bits 14-15 reserved
//	bytes 4-5    payload length, little-endian
//	byte 6       checksum
//	bytes 7..N   payload
//
// The checksum starts at 0xFE and is XORed with the opcode, both header
// bytes, both length bytes and every payload byte.
//
// Numeric payload fields are always little-endian. Use Writer and Reader
// (or the Put*/Get* helpers) instead of reinterpreting raw memory.
//
// On a CAN bus the same frame is carried in an 8-byte CAN frame with the
// opcode in data[0] and the header word as the extended CAN identifier.
package frame
