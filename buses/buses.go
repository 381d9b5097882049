// Package buses offers the bus-level collaborators needed to reach a register-addressable
// device on an SPI bus: a shareable bus, a scoped handle on it, and a GPIO output line
// used for chip select.
package buses

import "context"

// BusConfig holds the transfer settings applied when a handle on the bus is opened. The
// settings are passed through to the underlying transport untouched.
type BusConfig struct {
	// BaudHz is the bus clock rate in hertz.
	BaudHz uint
	// Mode is the SPI phase/polarity mode (0-3).
	Mode uint
}

// SPI represents a shareable SPI bus.
type SPI interface {
	// OpenHandle locks the shared bus and returns a handle interface that MUST be closed
	// when done.
	OpenHandle(cfg BusConfig) (SPIHandle, error)
	// Close stops the bus and releases any underlying resources.
	Close(ctx context.Context) error
}

// SPIHandle is similar to an io handle. It MUST be closed to release the bus.
type SPIHandle interface {
	// TransferByte performs one full-duplex byte exchange, returning the byte clocked in
	// while tx was clocked out. Chip select is not touched here; framing a transaction is
	// the caller's job via a GPIOPin.
	TransferByte(ctx context.Context, tx byte) (byte, error)
	// Close closes the handle and releases the lock on the bus.
	Close() error
}

// GPIOPin is a single output line, used here to drive a device's chip select.
type GPIOPin interface {
	// Set drives the line high (true) or low (false).
	Set(ctx context.Context, high bool) error
}
