// Package serial opens raw serial ports suitable for the drive protocol:
// 8 data bits, no parity, one stop bit, no flow control. A Port satisfies
// amc.Channel, providing byte-level read/write and a readiness poll.
package serial

import "errors"

// ErrBadSpeed indicates a baud rate the hardware interface does not
// support.
var ErrBadSpeed = errors.New("unsupported baud rate")
