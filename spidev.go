// Package spidev provides bit-, byte- and word-granularity access to the 8-bit addressed
// registers of devices attached to an SPI bus, so that drivers for such devices (IMUs,
// ADCs, radios) do not have to hand-roll transfer framing and bit masking each time.
//
// Every operation is one or two framed transactions: chip select asserted low, one
// address byte, zero or more data bytes, chip select deasserted high. The top bit of the
// address byte marks the transaction as a read, so register addresses are 7-bit (0-0x7F).
//
// The package assumes exclusive, serialized access to the bus and chip select line for
// the duration of each call. It does no locking of its own beyond the per-handle bus
// lock taken by the buses.SPI collaborator; callers that share a device across
// goroutines must serialize access themselves.
package spidev

import (
	"context"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"

	"go.viam.com/spidev/buses"
)

// readFlag is OR-ed into the address byte to mark a transaction as a register read. A
// write transmits the address byte unmodified.
const readFlag = 0x80

// Device is one register-addressable device on an SPI bus. Construct it once with New;
// its configuration never changes afterwards. Two Devices on the same bus may coexist as
// long as they use distinct chip select lines and calls are not interleaved.
type Device struct {
	bus    buses.SPI
	cs     buses.GPIOPin
	conf   buses.BusConfig
	order  BitOrder
	logger golog.Logger
}

// New returns a Device reachable over bus, selected by driving chipSelect low.
func New(bus buses.SPI, chipSelect buses.GPIOPin, conf Config, logger golog.Logger) (*Device, error) {
	if err := conf.Validate("config"); err != nil {
		return nil, err
	}
	return &Device{
		bus:    bus,
		cs:     chipSelect,
		conf:   buses.BusConfig{BaudHz: conf.baudHz(), Mode: conf.Mode},
		order:  conf.order(),
		logger: logger,
	}, nil
}

// Order reports the word bit order declared at construction.
func (d *Device) Order() BitOrder {
	return d.order
}

// ReadBytes reads len(buf) bytes starting at register reg into buf and returns the number
// of bytes read. The whole read is one framed transaction. A zero-length buf is legal and
// performs only the chip select framing around the address byte. If the returned count is
// smaller than len(buf), the unread tail of buf is undefined.
func (d *Device) ReadBytes(ctx context.Context, reg byte, buf []byte) (n int, err error) {
	d.logger.Debugf("reading %d bytes from register 0x%02x", len(buf), reg)

	handle, err := d.bus.OpenHandle(d.conf)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Combine(err, handle.Close())
	}()

	if err := d.cs.Set(ctx, false); err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Combine(err, d.cs.Set(ctx, true))
	}()

	if _, err := handle.TransferByte(ctx, reg|readFlag); err != nil {
		return 0, err
	}
	for n < len(buf) {
		b, txErr := handle.TransferByte(ctx, 0x00)
		if txErr != nil {
			return n, txErr
		}
		buf[n] = b
		n++
	}
	return n, nil
}

// WriteBytes writes data to consecutive registers starting at reg as one framed
// transaction. The device returns no acknowledgement, so a nil error means only that
// every byte was clocked out.
func (d *Device) WriteBytes(ctx context.Context, reg byte, data []byte) (err error) {
	d.logger.Debugf("writing %d bytes to register 0x%02x", len(data), reg)

	handle, err := d.bus.OpenHandle(d.conf)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, handle.Close())
	}()

	if err := d.cs.Set(ctx, false); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, d.cs.Set(ctx, true))
	}()

	if _, err := handle.TransferByte(ctx, reg); err != nil {
		return err
	}
	for _, b := range data {
		if _, err := handle.TransferByte(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// ReadWords reads len(buf) 16-bit words starting at register reg into buf and returns the
// number of words read. Each word costs two byte transfers within the same framed
// transaction. Words are always accumulated high byte first: the first byte of each pair
// lands in bits 15-8 and the second is OR-ed into bits 7-0, regardless of the configured
// bit order. Do not rely on LSBFirst changing the on-wire byte order here.
func (d *Device) ReadWords(ctx context.Context, reg byte, buf []uint16) (n int, err error) {
	d.logger.Debugf("reading %d words from register 0x%02x", len(buf), reg)

	handle, err := d.bus.OpenHandle(d.conf)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Combine(err, handle.Close())
	}()

	if err := d.cs.Set(ctx, false); err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Combine(err, d.cs.Set(ctx, true))
	}()

	if _, err := handle.TransferByte(ctx, reg|readFlag); err != nil {
		return 0, err
	}
	// Phase toggle over the byte stream. It starts on the high byte and flips on every
	// transferred byte; a word is complete only after its low-byte phase.
	msb := true
	for n < len(buf) {
		b, txErr := handle.TransferByte(ctx, 0x00)
		if txErr != nil {
			return n, txErr
		}
		if msb {
			buf[n] = uint16(b) << 8
		} else {
			buf[n] |= uint16(b)
			n++
		}
		msb = !msb
	}
	return n, nil
}

// WriteWords writes 16-bit words to consecutive registers starting at reg as one framed
// transaction. Every word is transmitted high byte first; the configured bit order is not
// consulted on the write path.
func (d *Device) WriteWords(ctx context.Context, reg byte, data []uint16) (err error) {
	d.logger.Debugf("writing %d words to register 0x%02x", len(data), reg)

	handle, err := d.bus.OpenHandle(d.conf)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, handle.Close())
	}()

	if err := d.cs.Set(ctx, false); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, d.cs.Set(ctx, true))
	}()

	if _, err := handle.TransferByte(ctx, reg); err != nil {
		return err
	}
	for _, w := range data {
		if _, err := handle.TransferByte(ctx, byte(w>>8)); err != nil {
			return err
		}
		if _, err := handle.TransferByte(ctx, byte(w)); err != nil {
			return err
		}
	}
	return nil
}

// ReadByte reads the single byte register reg.
func (d *Device) ReadByte(ctx context.Context, reg byte) (byte, error) {
	var buf [1]byte
	_, err := d.ReadBytes(ctx, reg, buf[:])
	return buf[0], err
}

// WriteByte writes b to the single byte register reg.
func (d *Device) WriteByte(ctx context.Context, reg, b byte) error {
	return d.WriteBytes(ctx, reg, []byte{b})
}

// ReadWord reads the single 16-bit register reg.
func (d *Device) ReadWord(ctx context.Context, reg byte) (uint16, error) {
	var buf [1]uint16
	_, err := d.ReadWords(ctx, reg, buf[:])
	return buf[0], err
}

// WriteWord writes w to the single 16-bit register reg.
func (d *Device) WriteWord(ctx context.Context, reg byte, w uint16) error {
	return d.WriteWords(ctx, reg, []uint16{w})
}
