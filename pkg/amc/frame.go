package amc

import (
	"encoding/binary"

	"github.com/servotalks/amc.go/pkg/crc16"
)

// SOF is the start-of-frame marker carried by every command and response.
const SOF = 0xA5

// Destination addresses. 0x01-0x3F address individual drives.
const (
	AddrBroadcast = 0x00
	AddrMaster    = 0xFF
)

// Response completion codes (status1).
const (
	StatusComplete       = 1
	StatusIncomplete     = 2
	StatusInvalidCommand = 3
	StatusNoAccess       = 6
	StatusFrameError     = 8
)

const (
	headerSize = 8
	crcOffset  = 6

	// maxPayload is the largest payload a frame can carry: the word
	// count field is a single byte, 255 words of two bytes each.
	maxPayload = 255 * 2
)

// AccessType selects the data-transfer semantics of a frame. The low bit
// means the response carries data, the high bit means the frame itself
// does; a drive answers a read with the data bit set in its own control
// byte.
type AccessType byte

const (
	// AccessRead carries no outbound payload; the response holds the data.
	AccessRead AccessType = 1
	// AccessWrite carries an outbound payload; the response holds none.
	AccessWrite AccessType = 2
	// AccessReadWrite carries payloads of equal length both ways.
	AccessReadWrite AccessType = 3
)

func (a AccessType) valid() bool {
	return a >= AccessRead && a <= AccessReadWrite
}

// hasData reports whether a frame with this access type carries a payload.
func (a AccessType) hasData() bool {
	return a&2 != 0
}

// Control is the packed control byte: access type in the two low bits, the
// rolling sequence number in the next four, two reserved bits on top. Bit
// accessors keep the layout independent of host byte order.
type Control byte

func makeControl(access AccessType, seq byte) Control {
	return Control(byte(access)&0x03 | seq<<2&0x3C)
}

// Access extracts the access type bits.
func (c Control) Access() AccessType {
	return AccessType(c & 0x03)
}

// Seq extracts the 4-bit sequence number.
func (c Control) Seq() byte {
	return byte(c>>2) & 0x0F
}

// Reserved extracts the two reserved bits.
func (c Control) Reserved() byte {
	return byte(c >> 6)
}

// Command is the header of a master-to-drive frame.
type Command struct {
	Addr    byte
	Control Control
	Index   byte
	Offset  byte
	Words   byte // payload length in 16-bit words
}

// Response is the decoded header of a drive-to-master frame. Status1 is the
// completion code; Status2 is reserved by the protocol.
type Response struct {
	Addr    byte
	Control Control
	Status1 byte
	Status2 byte
	Words   byte
	CRC     uint16
}

// encodeCommand builds the complete wire image of a command: the 8-byte
// header, then the payload and its own CRC when one is present. A single
// contiguous image lets the session issue one write, which keeps the frame
// atomic on the half-duplex link. The CRC field stays zero while the header
// checksum accumulates and is stamped big-endian afterwards.
func encodeCommand(tab *crc16.Table, cmd Command, payload []byte) []byte {
	b := make([]byte, headerSize, headerSize+len(payload)+2)
	b[0] = SOF
	b[1] = cmd.Addr
	b[2] = byte(cmd.Control)
	b[3] = cmd.Index
	b[4] = cmd.Offset
	b[5] = cmd.Words
	binary.BigEndian.PutUint16(b[crcOffset:], crc16.Checksum(b[:crcOffset], tab))
	if len(payload) > 0 {
		var trailer [2]byte
		binary.BigEndian.PutUint16(trailer[:], crc16.Checksum(payload, tab))
		b = append(b, payload...)
		b = append(b, trailer[:]...)
	}
	return b
}

// decodeResponse verifies a raw 8-byte response header and unpacks it.
// wantSeq is the sequence number of the command this response answers;
// the check is skipped when strict is false. Verification order: header
// CRC, sequence echo, completion status. Only StatusComplete decodes
// without error.
func decodeResponse(tab *crc16.Table, raw []byte, wantSeq byte, strict bool) (Response, error) {
	rsp := Response{
		Addr:    raw[1],
		Control: Control(raw[2]),
		Status1: raw[3],
		Status2: raw[4],
		Words:   raw[5],
		CRC:     binary.BigEndian.Uint16(raw[crcOffset:headerSize]),
	}
	if want := crc16.Checksum(raw[:crcOffset], tab); want != rsp.CRC {
		return rsp, &CRCError{Region: "header", Want: want, Got: rsp.CRC}
	}
	if strict && rsp.Control.Seq() != wantSeq {
		return rsp, &SequenceError{Want: wantSeq, Got: rsp.Control.Seq()}
	}
	if rsp.Status1 != StatusComplete {
		return rsp, &StatusError{Code: rsp.Status1}
	}
	return rsp, nil
}

// verifyPayload checks the independent payload checksum received after the
// payload bytes.
func verifyPayload(tab *crc16.Table, payload []byte, got uint16) error {
	if want := crc16.Checksum(payload, tab); want != got {
		return &CRCError{Region: "payload", Want: want, Got: got}
	}
	return nil
}
