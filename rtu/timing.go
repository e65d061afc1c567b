package rtu

import "time"

// maxTimedBaud is the rate above which the inter-character delay stops
// scaling with the baud rate. The Modbus over Serial Line specification
// (V1.02 §2.5.1.1) fixes the delay at 750 µs-class constants for fast
// links; the classic implementation rounds this to 500 µs.
const maxTimedBaud = 19200

// fastInterCharDelay is the fixed delay used above maxTimedBaud.
const fastInterCharDelay = 500 * time.Microsecond

// InterCharDelay returns the minimum gap between two characters of the
// same frame for the given baud rate. An RTU character is 11 bits
// (start + 8 data + parity + stop), so for rates up to 19200 baud the
// delay is 11 bit-times; above that it is a fixed 500 µs.
//
// Callers use this to size the Port's inter-character timeout; the Port
// itself does not enforce it.
func InterCharDelay(baud int) time.Duration {
	if baud <= maxTimedBaud {
		return time.Duration(11 * float64(time.Second) / float64(baud))
	}

	return fastInterCharDelay
}
