package amc

import (
	"io"
	"time"
)

// Channel is the byte channel to a drive, typically a serial port already
// configured for raw 8N1 transmission. Poll blocks until data is readable
// or the timeout expires; implementations retry interrupted waits
// internally so an interruption never surfaces as a timeout.
type Channel interface {
	io.ReadWriter
	Poll(timeout time.Duration) (bool, error)
}

// readExact fills buf from ch, tolerating arbitrarily short reads. The full
// timeout is re-applied before every read attempt; it is not a deadline for
// the whole transfer. On expiry ErrTimedOut is returned and whatever bytes
// arrived are abandoned by the caller's error path.
func readExact(ch Channel, buf []byte, timeout time.Duration) error {
	for n := 0; n < len(buf); {
		ready, err := ch.Poll(timeout)
		if err != nil {
			return err
		}
		if !ready {
			return ErrTimedOut
		}
		r, err := ch.Read(buf[n:])
		if err != nil {
			return err
		}
		n += r
	}
	return nil
}
