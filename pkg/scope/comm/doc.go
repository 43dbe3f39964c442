// Package comm provides the scope protocol support.
package comm

// The scope protocol is communicated between the host and the scope
// firmware over a serial port. It is strictly synchronous and half-duplex:
// the host sends one frame (a command code byte followed by a fixed size
// payload) and the firmware always answers with a single status byte.
// DOWNLOAD_DATA is the only command with a variable length reply, the
// status is followed by a sample block:
//
//	[count:uint32][count x value:uint16][0xff]
//
// All integers are little-endian. There is no checksum or sequence number,
// a reply that doesn't arrive within the read timeout is reported as
// StatusTimeout and treated the same way as a failure reported by the
// firmware.
//
// Producer: host
// Consumer: scope firmware
