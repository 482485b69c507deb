package amc

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/servotalks/amc.go/pkg/crc16"
)

// DefaultTimeout bounds each read attempt on a response.
const DefaultTimeout = time.Second

// ccittTable is built once and shared read-only by every session.
var ccittTable = crc16.MakeTable(crc16.CCITT)

// Drive is one master-side session with a drive. It owns the rolling
// sequence counter and the read timeout for that connection.
//
// A Drive is not safe for concurrent use: the protocol allows a single
// exchange in flight on the half-duplex link, so callers sharing one across
// goroutines must serialize externally. Closing the underlying channel is
// the only way to unblock an exchange stuck on a dead drive.
type Drive struct {
	ch        Channel
	addr      byte
	seq       byte
	timeout   time.Duration
	table     *crc16.Table
	tracer    Tracer
	strictSeq bool
}

// Option configures a Drive.
type Option func(*Drive)

// WithTimeout sets the per-read-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(drv *Drive) { drv.timeout = d }
}

// WithTracer installs a byte-level trace sink. Pass nil to disable tracing.
func WithTracer(t Tracer) Option {
	return func(drv *Drive) { drv.tracer = t }
}

// WithLenientSequence disables verification that a response echoes the
// sequence number of the command just sent, for drives known to echo stale
// numbers. Strict checking is the default.
func WithLenientSequence() Option {
	return func(drv *Drive) { drv.strictSeq = false }
}

// New creates a session over an already opened and configured channel.
// addr 0 is broadcast, 1-63 address a single drive.
func New(ch Channel, addr byte, opts ...Option) *Drive {
	drv := &Drive{
		ch:        ch,
		addr:      addr,
		timeout:   DefaultTimeout,
		table:     ccittTable,
		tracer:    glogTracer{},
		strictSeq: true,
	}
	for _, opt := range opts {
		opt(drv)
	}
	return drv
}

// Addr returns the destination address of the session.
func (drv *Drive) Addr() byte {
	return drv.addr
}

// nextSeq advances the 4-bit counter, exactly once per command attempt,
// wrapping at 16 regardless of how the exchange ends.
func (drv *Drive) nextSeq() byte {
	drv.seq = (drv.seq + 1) & 0x0F
	return drv.seq
}

// exchange runs one command/response round trip: encode, write the whole
// wire image, read and verify the response header, then read and verify the
// payload the response declares, if any. respBuf caps the acceptable
// payload size; the returned count is the number of payload bytes stored.
// Failures propagate unchanged, with no retry at this layer.
func (drv *Drive) exchange(access AccessType, index, offset byte, respBuf, payload []byte) (int, error) {
	if !access.valid() {
		return 0, ErrInvalidAccessType
	}
	if len(payload)%2 != 0 {
		return 0, ErrOddLength
	}
	if len(payload) > maxPayload || len(respBuf) > maxPayload {
		return 0, ErrTooLong
	}
	var words byte
	if access == AccessRead {
		words = byte(len(respBuf) / 2)
	} else {
		words = byte(len(payload) / 2)
	}
	seq := drv.nextSeq()
	img := encodeCommand(drv.table, Command{
		Addr:    drv.addr,
		Control: makeControl(access, seq),
		Index:   index,
		Offset:  offset,
		Words:   words,
	}, payload)

	n, err := drv.ch.Write(img)
	if err != nil {
		return 0, err
	}
	if n != len(img) {
		return 0, io.ErrShortWrite
	}
	if drv.tracer != nil {
		drv.tracer.Sent(img)
	}

	var head [headerSize]byte
	if err := readExact(drv.ch, head[:], drv.timeout); err != nil {
		return 0, err
	}
	if drv.tracer != nil {
		drv.tracer.Received(head[:])
	}
	rsp, err := decodeResponse(drv.table, head[:], seq, drv.strictSeq)
	if err != nil {
		return 0, err
	}
	if !rsp.Control.Access().hasData() {
		return 0, nil
	}

	// Reject a declared length beyond the caller's capacity before
	// reading a single payload byte.
	respLen := int(rsp.Words) * 2
	if respLen > len(respBuf) {
		return 0, ErrBufferTooSmall
	}
	data := respBuf[:respLen]
	if err := readExact(drv.ch, data, drv.timeout); err != nil {
		return 0, err
	}
	var trailer [2]byte
	if err := readExact(drv.ch, trailer[:], drv.timeout); err != nil {
		return 0, err
	}
	if drv.tracer != nil {
		drv.tracer.Received(data)
		drv.tracer.Received(trailer[:])
	}
	if err := verifyPayload(drv.table, data, binary.BigEndian.Uint16(trailer[:])); err != nil {
		return 0, err
	}
	return respLen, nil
}

// GetBytes reads a register as a raw byte block of up to maxLen bytes,
// returning as many bytes as the drive reported.
func (drv *Drive) GetBytes(index, offset byte, maxLen int) ([]byte, error) {
	buf := make([]byte, maxLen)
	n, err := drv.exchange(AccessRead, index, offset, buf, nil)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// GetUint16 reads a 16-bit register value. Register words travel in the
// device's native little-endian order, unlike the big-endian CRC fields.
func (drv *Drive) GetUint16(index, offset byte) (uint16, error) {
	var buf [2]byte
	n, err := drv.exchange(AccessRead, index, offset, buf[:], nil)
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return 0, ErrShortPayload
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// GetUint32 reads a 32-bit little-endian register value.
func (drv *Drive) GetUint32(index, offset byte) (uint32, error) {
	var buf [4]byte
	n, err := drv.exchange(AccessRead, index, offset, buf[:], nil)
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return 0, ErrShortPayload
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// SetBytes writes a raw byte block to a register. The length must be a
// whole number of 16-bit words.
func (drv *Drive) SetBytes(index, offset byte, data []byte) error {
	_, err := drv.exchange(AccessWrite, index, offset, nil, data)
	return err
}

// SetUint16 writes a 16-bit little-endian register value.
func (drv *Drive) SetUint16(index, offset byte, value uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	return drv.SetBytes(index, offset, buf[:])
}

// SetUint32 writes a 32-bit little-endian register value.
func (drv *Drive) SetUint32(index, offset byte, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return drv.SetBytes(index, offset, buf[:])
}
