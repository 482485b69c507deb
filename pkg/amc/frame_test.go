package amc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/servotalks/amc.go/pkg/crc16"
)

func respHeader(access AccessType, seq, status1, status2, words byte) []byte {
	b := []byte{SOF, 0x3F, byte(makeControl(access, seq)), status1, status2, words, 0, 0}
	binary.BigEndian.PutUint16(b[crcOffset:], crc16.Checksum(b[:crcOffset], ccittTable))
	return b
}

func TestControlPacking(t *testing.T) {
	for _, access := range []AccessType{AccessRead, AccessWrite, AccessReadWrite} {
		for seq := byte(0); seq < 16; seq++ {
			c := makeControl(access, seq)
			require.Equal(t, access, c.Access())
			require.Equal(t, seq, c.Seq())
			require.Equal(t, byte(0), c.Reserved())
		}
	}
}

func TestAccessTypeDataBit(t *testing.T) {
	require.False(t, AccessRead.hasData())
	require.True(t, AccessWrite.hasData())
	require.True(t, AccessReadWrite.hasData())
}

func TestEncodeCommandHeader(t *testing.T) {
	img := encodeCommand(ccittTable, Command{
		Addr:    0x3F,
		Control: makeControl(AccessRead, 1),
		Index:   0x01,
		Offset:  0x00,
		Words:   1,
	}, nil)
	require.Len(t, img, headerSize)
	require.Equal(t, []byte{0xA5, 0x3F, 0x05, 0x01, 0x00, 0x01}, img[:crcOffset])
	require.Equal(t, crc16.Checksum(img[:crcOffset], ccittTable),
		binary.BigEndian.Uint16(img[crcOffset:]))
}

func TestEncodeCommandWithPayload(t *testing.T) {
	payload := []byte{0x0E, 0x00}
	img := encodeCommand(ccittTable, Command{
		Addr:    0x01,
		Control: makeControl(AccessWrite, 3),
		Index:   0x07,
		Offset:  0x00,
		Words:   1,
	}, payload)
	require.Len(t, img, headerSize+len(payload)+2)
	require.Equal(t, payload, img[headerSize:headerSize+2])
	require.Equal(t, crc16.Checksum(payload, ccittTable),
		binary.BigEndian.Uint16(img[headerSize+2:]))
	// the header CRC covers only the header bytes
	require.Equal(t, crc16.Checksum(img[:crcOffset], ccittTable),
		binary.BigEndian.Uint16(img[crcOffset:headerSize]))
}

func TestDecodeResponse(t *testing.T) {
	raw := respHeader(AccessWrite, 9, StatusComplete, 0x42, 5)
	rsp, err := decodeResponse(ccittTable, raw, 9, true)
	require.NoError(t, err)
	require.Equal(t, byte(0x3F), rsp.Addr)
	require.Equal(t, AccessWrite, rsp.Control.Access())
	require.Equal(t, byte(9), rsp.Control.Seq())
	require.Equal(t, byte(StatusComplete), rsp.Status1)
	require.Equal(t, byte(0x42), rsp.Status2)
	require.Equal(t, byte(5), rsp.Words)
}

func TestDecodeResponseBitFlip(t *testing.T) {
	base := respHeader(AccessWrite, 4, StatusComplete, 0, 1)
	for bit := 0; bit < headerSize*8; bit++ {
		raw := make([]byte, headerSize)
		copy(raw, base)
		raw[bit/8] ^= 1 << uint(bit%8)
		_, err := decodeResponse(ccittTable, raw, 4, true)
		require.Error(t, err, "flipped bit %d", bit)
		crcErr, ok := err.(*CRCError)
		require.True(t, ok, "flipped bit %d: %v", bit, err)
		require.Equal(t, "header", crcErr.Region)
	}
}

func TestDecodeResponseStatus(t *testing.T) {
	testCases := []struct {
		status byte
		name   string
	}{
		{StatusIncomplete, "command not completed"},
		{StatusInvalidCommand, "invalid command"},
		{StatusNoAccess, "no access"},
		{StatusFrameError, "frame error"},
		{0x55, "unknown status"},
	}
	for _, tc := range testCases {
		raw := respHeader(AccessRead, 2, tc.status, 0, 0)
		_, err := decodeResponse(ccittTable, raw, 2, true)
		statusErr, ok := err.(*StatusError)
		require.True(t, ok, "status %d: %v", tc.status, err)
		require.Equal(t, tc.status, statusErr.Code)
		require.Contains(t, statusErr.Error(), tc.name)
	}
}

func TestDecodeResponseSequence(t *testing.T) {
	raw := respHeader(AccessRead, 7, StatusComplete, 0, 0)

	_, err := decodeResponse(ccittTable, raw, 8, true)
	seqErr, ok := err.(*SequenceError)
	require.True(t, ok, "got %v", err)
	require.Equal(t, byte(8), seqErr.Want)
	require.Equal(t, byte(7), seqErr.Got)

	// lenient mode accepts a stale echo
	_, err = decodeResponse(ccittTable, raw, 8, false)
	require.NoError(t, err)
}

func TestVerifyPayload(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	crc := crc16.Checksum(payload, ccittTable)
	require.NoError(t, verifyPayload(ccittTable, payload, crc))

	err := verifyPayload(ccittTable, payload, crc^0x0001)
	crcErr, ok := err.(*CRCError)
	require.True(t, ok, "got %v", err)
	require.Equal(t, "payload", crcErr.Region)
}
