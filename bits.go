package spidev

import (
	"context"

	"github.com/pkg/errors"
)

// Bit fields within a register are addressed by the position of their most significant
// bit and their width, so a 3-bit field occupying bits 6-4 of a byte is (bitStart=6,
// length=3). The field must fit entirely within the register: bitStart-length+1 must not
// go negative, and length must be at least 1. Violating that is a caller contract
// violation and yields unspecified shift arithmetic, not an error.
//
// All write-side bit operations are read-modify-write sequences spanning two independent
// bus transactions. Nothing isolates the read from the write, so a concurrent writer to
// the same register between the two produces a lost update.

// ReadBit reports whether bit bitNum (0-7) of the 8-bit register reg is set.
func (d *Device) ReadBit(ctx context.Context, reg, bitNum byte) (bool, error) {
	b, err := d.ReadByte(ctx, reg)
	if err != nil {
		return false, err
	}
	return b&(1<<bitNum) != 0, nil
}

// ReadBitW reports whether bit bitNum (0-15) of the 16-bit register reg is set.
func (d *Device) ReadBitW(ctx context.Context, reg, bitNum byte) (bool, error) {
	w, err := d.ReadWord(ctx, reg)
	if err != nil {
		return false, err
	}
	return w&(1<<bitNum) != 0, nil
}

// ReadBits reads the field (bitStart, length) from the 8-bit register reg and returns it
// right-aligned, so a field reading '101' is 0x05 whatever its position in the byte.
func (d *Device) ReadBits(ctx context.Context, reg, bitStart, length byte) (byte, error) {
	b, err := d.ReadByte(ctx, reg)
	if err != nil {
		return 0, err
	}
	shift := bitStart - length + 1
	mask := byte((1<<length)-1) << shift
	return (b & mask) >> shift, nil
}

// ReadBitsW reads the field (bitStart, length) from the 16-bit register reg and returns
// it right-aligned.
func (d *Device) ReadBitsW(ctx context.Context, reg, bitStart, length byte) (uint16, error) {
	w, err := d.ReadWord(ctx, reg)
	if err != nil {
		return 0, err
	}
	shift := bitStart - length + 1
	mask := uint16((1<<length)-1) << shift
	return (w & mask) >> shift, nil
}

// WriteBit sets or clears bit bitNum (0-7) of the 8-bit register reg, leaving the other
// bits as read. Read-modify-write; see the package note on atomicity.
func (d *Device) WriteBit(ctx context.Context, reg, bitNum byte, value bool) error {
	b, err := d.ReadByte(ctx, reg)
	if err != nil {
		return err
	}
	if value {
		b |= 1 << bitNum
	} else {
		b &^= 1 << bitNum
	}
	return d.WriteByte(ctx, reg, b)
}

// WriteBitW sets or clears bit bitNum (0-15) of the 16-bit register reg.
func (d *Device) WriteBitW(ctx context.Context, reg, bitNum byte, value bool) error {
	w, err := d.ReadWord(ctx, reg)
	if err != nil {
		return err
	}
	if value {
		w |= 1 << bitNum
	} else {
		w &^= 1 << bitNum
	}
	return d.WriteWord(ctx, reg, w)
}

// WriteBits writes the right-aligned value into the field (bitStart, length) of the
// 8-bit register reg, leaving the bits outside the field as read. Value bits beyond the
// field width are discarded. Read-modify-write; see the package note on atomicity.
func (d *Device) WriteBits(ctx context.Context, reg, bitStart, length, value byte) error {
	var buf [1]byte
	n, err := d.ReadBytes(ctx, reg, buf[:])
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Errorf("read no data from register 0x%02x", reg)
	}
	shift := bitStart - length + 1
	mask := byte((1<<length)-1) << shift
	value = (value << shift) & mask
	return d.WriteByte(ctx, reg, buf[0]&^mask|value)
}

// WriteBitsW writes the right-aligned value into the field (bitStart, length) of the
// 16-bit register reg.
func (d *Device) WriteBitsW(ctx context.Context, reg, bitStart, length byte, value uint16) error {
	var buf [1]uint16
	n, err := d.ReadWords(ctx, reg, buf[:])
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Errorf("read no data from register 0x%02x", reg)
	}
	shift := bitStart - length + 1
	mask := uint16((1<<length)-1) << shift
	value = (value << shift) & mask
	return d.WriteWord(ctx, reg, buf[0]&^mask|value)
}
