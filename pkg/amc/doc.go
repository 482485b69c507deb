// Package amc implements the master side of the point-to-point serial
// register protocol spoken by servo drives. A Drive session encodes
// command frames, writes them to a byte channel, and reads back verified
// responses; typed get/set helpers expose registers as strings and
// little-endian 16/32-bit words.
package amc
