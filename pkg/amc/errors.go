package amc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAccessType indicates an access type that is none of
	// read, write or read-write.
	ErrInvalidAccessType = errors.New("invalid access type")
	// ErrTimedOut indicates the drive delivered no data within the
	// read timeout.
	ErrTimedOut = errors.New("timed out")
	// ErrBufferTooSmall indicates the response declares a larger payload
	// than the caller's buffer can hold. The drive never legitimately
	// returns more than asked for, so this is treated as corruption.
	ErrBufferTooSmall = errors.New("buffer too small for declared payload")
	// ErrOddLength indicates a payload that is not a whole number of
	// 16-bit register words.
	ErrOddLength = errors.New("payload length not a multiple of two")
	// ErrTooLong indicates a payload or read request larger than the
	// 255 words a frame header can declare.
	ErrTooLong = errors.New("length exceeds maximum frame payload")
	// ErrShortPayload indicates the drive returned fewer payload bytes
	// than the typed operation requires.
	ErrShortPayload = errors.New("response payload shorter than expected")
	// ErrParamRange indicates a command parameter number outside 0-15.
	ErrParamRange = errors.New("command parameter number out of range")
)

// CRCError reports a checksum mismatch on a received frame region.
type CRCError struct {
	Region string // "header" or "payload"
	Want   uint16 // locally computed
	Got    uint16 // received on the wire
}

// Error implements error.
func (e *CRCError) Error() string {
	return fmt.Sprintf("%s CRC mismatch (computed %04X, received %04X)", e.Region, e.Want, e.Got)
}

// SequenceError reports a response echoing a sequence number other than
// the one of the command just sent.
type SequenceError struct {
	Want byte
	Got  byte
}

// Error implements error.
func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence mismatch (sent %d, response carries %d)", e.Want, e.Got)
}

// StatusError reports a response whose completion code is not
// StatusComplete.
type StatusError struct {
	Code byte
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (status 0x%02X)", statusName(e.Code), e.Code)
}

func statusName(code byte) string {
	switch code {
	case StatusIncomplete:
		return "command not completed"
	case StatusInvalidCommand:
		return "invalid command"
	case StatusNoAccess:
		return "no access"
	case StatusFrameError:
		return "frame error"
	}
	return "unknown status"
}
