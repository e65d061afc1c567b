// Package rtu provides the frame-integrity and timing primitives used by
// Modbus RTU framing: the CRC-16 checksum and the inter-character delay
// derived from the line's baud rate.
package rtu

// crcPoly is the reversed Modbus CRC-16 generator polynomial
// (x^16 + x^15 + x^2 + 1, 0x8005 reversed).
const crcPoly uint16 = 0xA001

// crcInit is the CRC-16 accumulator seed.
const crcInit uint16 = 0xFFFF

// CRC16 computes the Modbus CRC-16 of data and returns it in wire order:
// the low byte of the accumulator becomes the high byte of the result.
// A frame is finalized by appending the returned value big-endian, which
// places the accumulator's low byte first on the wire as the protocol
// requires.
//
// The input is never modified. CRC16 of an empty slice is the byte-swapped
// seed, 0xFFFF.
func CRC16(data []byte) uint16 {
	crc := crcInit
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}

	return swapBytes(crc)
}

// Check reports whether the last two bytes of frame are the valid wire-order
// CRC-16 of the preceding bytes. Frames shorter than the checksum itself
// never validate.
func Check(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}

	n := len(frame) - 2
	want := CRC16(frame[:n])

	return frame[n] == byte(want>>8) && frame[n+1] == byte(want)
}

// swapBytes exchanges the high and low bytes of a 16-bit word.
func swapBytes(w uint16) uint16 {
	return w<<8 | w>>8
}
