// Package fpgasign drives an FPGA that signs sensor readings in hardware.
//
// The FPGA computes the SHA-256 digest of a 32 byte payload and encrypts the
// digest with AES-CBC. The host sends the payload in a fixed 74 byte
// full-duplex SPI transfer and reads the result back from the tail of the
// same transfer:
//
//	offset  0      32          42         74
//	        | data | delay (10) | result   |
//
// The FPGA can be reached directly on a SPI port, through a MCP2210 USB-HID
// to SPI bridge, or replaced by a software model for development.
//
// The host also holds a 32 byte secret key that it uses to decrypt results
// with AES-256-CBC, either in software or with the Linux kernel crypto API.
package fpgasign
