package spidev

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// DefaultBaudHz is the bus clock rate used when a Config does not set one.
const DefaultBaudHz = 1000000

// BitOrder declares which byte of a 16-bit word is considered first on the wire. It is
// fixed when a Device is constructed and applies to all word-level operations for that
// device's lifetime.
type BitOrder uint8

const (
	// MSBFirst transfers the high byte (bits 15-8) of each word first.
	MSBFirst BitOrder = iota
	// LSBFirst declares the low byte first. Note that the current word framing transmits
	// and accumulates the high byte first for either order; see ReadWords and WriteWords.
	LSBFirst
)

// Config describes how to talk to one register-addressable device on an SPI bus. The
// chip select line is not part of the config; it is injected as a buses.GPIOPin when the
// Device is constructed.
type Config struct {
	BaudHz   uint   `json:"baud_hz,omitempty"`
	Mode     uint   `json:"mode,omitempty"`
	BitOrder string `json:"bit_order,omitempty"` // "msb" (default) or "lsb"
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	if config.Mode > 3 {
		return utils.NewConfigValidationError(path, errors.Errorf("mode must be 0-3, got %d", config.Mode))
	}
	switch config.BitOrder {
	case "", "msb", "lsb":
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("bit_order must be %q or %q, got %q", "msb", "lsb", config.BitOrder))
	}
	return nil
}

func (config *Config) baudHz() uint {
	if config.BaudHz == 0 {
		return DefaultBaudHz
	}
	return config.BaudHz
}

func (config *Config) order() BitOrder {
	if config.BitOrder == "lsb" {
		return LSBFirst
	}
	return MSBFirst
}
