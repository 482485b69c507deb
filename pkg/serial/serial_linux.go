package serial

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

var speeds = map[int]uint32{
	50:     unix.B50,
	75:     unix.B75,
	110:    unix.B110,
	134:    unix.B134,
	150:    unix.B150,
	200:    unix.B200,
	300:    unix.B300,
	600:    unix.B600,
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// Port is an open serial device.
type Port struct {
	fd   int
	name string
}

// Open opens the device in raw 8N1 mode at the given baud rate. Hardware
// and software flow control are disabled; RS-485 links do not use them.
// Both queues are flushed so a new session never sees stale bytes.
func Open(device string, baud int) (*Port, error) {
	speed, ok := speeds[baud]
	if !ok {
		return nil, ErrBadSpeed
	}
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: device, Err: err}
	}
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, &os.PathError{Op: "tcgetattr", Path: device, Err: err}
	}

	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	tio.Cflag |= unix.CS8 | unix.CREAD | unix.HUPCL | speed
	tio.Ispeed = speed
	tio.Ospeed = speed
	// one byte unblocks a read, with a 1s inter-byte guard
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 10

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		unix.Close(fd)
		return nil, &os.PathError{Op: "tcsetattr", Path: device, Err: err}
	}

	p := &Port{fd: fd, name: device}
	if err := p.Flush(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Read reads whatever bytes are available, at least one.
func (p *Port) Read(b []byte) (int, error) {
	for {
		n, err := unix.Read(p.fd, b)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, &os.PathError{Op: "read", Path: p.name, Err: err}
		}
		return n, nil
	}
}

// Write writes b to the device.
func (p *Port) Write(b []byte) (int, error) {
	for {
		n, err := unix.Write(p.fd, b)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, &os.PathError{Op: "write", Path: p.name, Err: err}
		}
		return n, nil
	}
}

// pollMillis converts a timeout to poll(2) milliseconds. Sub-millisecond
// timeouts round up to 1 so they never degrade to a non-blocking poll.
func pollMillis(timeout time.Duration) int {
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return ms
}

// Poll waits until the port is readable or the timeout expires. An
// interrupted wait restarts with the full timeout.
func (p *Port) Poll(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, pollMillis(timeout))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, &os.PathError{Op: "poll", Path: p.name, Err: err}
		}
		return n > 0, nil
	}
}

// Flush discards unread input and untransmitted output.
func (p *Port) Flush() error {
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return &os.PathError{Op: "tcflush", Path: p.name, Err: err}
	}
	return nil
}

// Close closes the device. Closing is the only way to unblock an exchange
// stuck waiting on a drive that went away.
func (p *Port) Close() error {
	return unix.Close(p.fd)
}
