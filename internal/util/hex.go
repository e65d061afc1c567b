// Package util holds small helpers shared across go-modbus packages.
package util

import "strconv"

// FormatBytes renders a byte buffer as a dash-separated decimal dump with
// a leading prefix, e.g. "serial: rx 1-3-0-0-0-1". This is the debug
// representation used in transport logs and by the framing layer when
// tracing frames.
func FormatBytes(prefix string, buf []byte) string {
	out := make([]byte, 0, len(prefix)+4*len(buf)+1)
	out = append(out, prefix...)

	for i, b := range buf {
		if i == 0 {
			out = append(out, ' ')
		} else {
			out = append(out, '-')
		}
		out = strconv.AppendUint(out, uint64(b), 10)
	}

	return string(out)
}
