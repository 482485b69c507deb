// Package crc16 implements the table-driven 16-bit CRC used to protect
// drive protocol frames. The header and payload of a frame are covered by
// two independent checksums, both starting from a zero accumulator.
package crc16

// CCITT is the generator polynomial of the drive protocol.
const CCITT = 0x1021

// Table holds the precomputed remainder for every leading byte value.
// A Table is immutable once built and may be shared without locking.
type Table [256]uint16

// MakeTable builds the lookup table for a polynomial.
func MakeTable(poly uint16) *Table {
	var t Table
	for i := range t {
		data := uint16(i) << 8
		var accum uint16
		for bit := 0; bit < 8; bit++ {
			if (data^accum)&0x8000 != 0 {
				accum = accum<<1 ^ poly
			} else {
				accum <<= 1
			}
			data <<= 1
		}
		t[i] = accum
	}
	return &t
}

// Update feeds p into a running checksum, one byte at a time.
func Update(crc uint16, tab *Table, p []byte) uint16 {
	for _, b := range p {
		crc = crc<<8 ^ tab[byte(crc>>8)^b]
	}
	return crc
}

// Checksum computes the CRC of data from a zero accumulator.
func Checksum(data []byte, tab *Table) uint16 {
	return Update(0, tab, data)
}
